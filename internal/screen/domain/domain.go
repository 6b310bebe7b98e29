// Package domain holds the pure value types shared by the screening
// components. It has no dependencies beyond the standard library.
package domain
