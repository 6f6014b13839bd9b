package storeprofile

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
)

// indexDocument is the on-disk shape: a bare array of profile objects.
type indexDocument []Profile

// Load parses path as a JSON array of store profiles (SPEC_FULL §12's
// concrete rendering of spec §6's "opaque to the kernel" index format).
// A store wanting a different file format supplies its own function with
// this same ([]Profile, error) signature.
func Load(path string) ([]Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "storeprofile: reading index %q", path)
	}

	var doc indexDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrapf(err, "storeprofile: parsing index %q", path)
	}

	for i, profile := range doc {
		if profile.StoreID == "" {
			return nil, errors.Errorf("storeprofile: profile at index %d is missing storeId", i)
		}
		if profile.Currency == "" {
			return nil, errors.Errorf("storeprofile: profile %q is missing currency", profile.StoreID)
		}
	}

	return doc, nil
}
