package domain

// URLCheck is the result of a membership check for one raw URL.
type URLCheck struct {
	IsPossiblySpam bool         // filter positive and not allow-listed
	NormalizedURL  CanonicalURL // key that was tested
	Allowed        bool         // filter was positive but the allow-list overrode it
}
