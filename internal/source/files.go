package source

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"caixa/internal/core"
)

// File names inside a data directory.
const (
	TitlesFile         = "titles.json"
	ClassificationFile = "classification.yaml"
	DepartmentsFile    = "departments.yaml"
	AccountsFile       = "accounts.yaml"
)

type accountFile struct {
	Name           string `yaml:"name"`
	OpeningBalance string `yaml:"openingBalance"`
}

// ReadReferenceDir loads the three reference YAML files from dir. Missing
// files yield empty tables; malformed ones are an error.
//
// classification.yaml and departments.yaml are flat code→name maps;
// accounts.yaml maps account ids to {name, openingBalance}, where the balance
// accepts both "1.234,56" and "1234.56".
func ReadReferenceDir(dir string) (core.Reference, error) {
	ref := core.Reference{
		Classes:     core.MapLookup[core.Classification]{},
		Departments: core.MapLookup[string]{},
		Accounts:    core.MapLookup[core.AccountInfo]{},
	}

	var classes map[string]string
	if err := readYAML(filepath.Join(dir, ClassificationFile), &classes); err != nil {
		return ref, err
	}
	for code, class := range classes {
		ref.Classes[code] = core.Classification{ClassName: class}
	}

	if err := readYAML(filepath.Join(dir, DepartmentsFile), &ref.Departments); err != nil {
		return ref, err
	}

	var accounts map[string]accountFile
	if err := readYAML(filepath.Join(dir, AccountsFile), &accounts); err != nil {
		return ref, err
	}
	for id, a := range accounts {
		info := core.AccountInfo{Name: a.Name}
		if a.OpeningBalance != "" {
			opening, err := core.ParseAmount(a.OpeningBalance)
			if err != nil {
				return ref, fmt.Errorf("account %s opening balance %q: %w", id, a.OpeningBalance, err)
			}
			info.OpeningBalance = opening
		}
		ref.Accounts[id] = info
	}
	return ref, nil
}

// ReadTitlesFile decodes a JSON array of titles. A missing file yields no
// titles.
func ReadTitlesFile(path string) ([]core.Title, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var titles []core.Title
	if err := json.Unmarshal(b, &titles); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return titles, nil
}

func readYAML(path string, out any) error {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
