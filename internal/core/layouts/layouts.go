// Package layouts registers the known inventory export layouts with the core
// registry. Import it for side effects.
package layouts

import "github.com/JonMunkholm/countsheet/internal/core"

func init() {
	registerAuto()
	registerStandard()
	registerM3()
}

func registerAuto() {
	core.RegisterLayout(core.Layout{
		Key:         core.DefaultLayout,
		Label:       "Automatic",
		Description: "Searches the first rows for the header that names the UPC column.",
		HeaderRow:   core.AutoDetectHeader,
	})
}

func registerStandard() {
	core.RegisterLayout(core.Layout{
		Key:         "standard",
		Label:       "Standard export",
		Description: "Header on the first row, data right below it.",
		HeaderRow:   0,
	})
}

// The M3 weekly export opens with a report banner, puts the header on the
// second row and a subtotal line right under it.
func registerM3() {
	core.RegisterLayout(core.Layout{
		Key:             "m3",
		Label:           "M3 weekly report",
		Description:     "Banner on row 1, header on row 2, subtotal row dropped.",
		HeaderRow:       1,
		SkipAfterHeader: 1,
	})
}
