// Package layouts registers all device export layouts with the core registry.
// Import this package to ensure all layouts are registered.
package layouts

// Catalogue positions. Lower wins when two layouts score equally and no
// vendor marker decides.
const (
	orderDexcom = iota + 1
	orderLibreView
	orderGlooko
	orderTandem
	orderMedtronic
	orderOmnipod
)
