package table

import (
	"fmt"
	"strconv"
	"strings"
)

// Height returns the nominal height in centimetres encoded in a channel name that
// follows the <sensor>.<height_cm> (TDD.60) or <Quantity>_<height_cm> (PP_120) convention.
func Height(name string) (int, error) {
	i := strings.LastIndexAny(name, "._")
	if i < 0 || i == len(name)-1 {
		return 0, fmt.Errorf("channel %q has no height suffix", name)
	}

	h, err := strconv.Atoi(name[i+1:])
	if err != nil {
		return 0, fmt.Errorf("channel %q: parsing height: %w", name, err)
	}
	return h, nil
}

// HeightName formats a derived per-height channel name, e.g. HeightName("V", 100) = "V_100".
func HeightName(quantity string, height int) string {
	return quantity + "_" + strconv.Itoa(height)
}
