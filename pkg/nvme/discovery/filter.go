package discovery

import (
	"github.com/gobwas/glob"
	"github.com/pkg/errors"
)

// FilteredEnumerator keeps only the controllers whose name or path matches one of the patterns
type FilteredEnumerator struct {
	enum     Enumerator
	patterns []glob.Glob
}

// NewFilteredEnumerator compiles patterns such as "nvme[0-3]" or "/dev/nvme*".
// No patterns means no filtering.
func NewFilteredEnumerator(enum Enumerator, patterns ...string) (*FilteredEnumerator, error) {
	f := &FilteredEnumerator{enum: enum}
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, errors.Wrapf(err, "can't compile device pattern %q", p)
		}
		f.patterns = append(f.patterns, g)
	}
	return f, nil
}

func (f *FilteredEnumerator) List() ([]Device, error) {
	devices, err := f.enum.List()
	if err != nil || len(f.patterns) == 0 {
		return devices, err
	}

	var matched []Device
	for _, dev := range devices {
		if f.match(dev) {
			matched = append(matched, dev)
		}
	}
	return matched, nil
}

func (f *FilteredEnumerator) match(dev Device) bool {
	for _, g := range f.patterns {
		if g.Match(dev.Name) || g.Match(dev.Path) {
			return true
		}
	}
	return false
}
