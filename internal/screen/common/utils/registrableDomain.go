package utils

import "golang.org/x/net/publicsuffix"

// RegistrableDomain returns the eTLD+1 for a host ("login.bank.co.uk" ->
// "bank.co.uk"). Hosts the public suffix list cannot place come back
// canonicalized but otherwise unchanged.
func RegistrableDomain(host string) string {
	host = CanonicalDNSName(host)
	apex, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return apex
}
