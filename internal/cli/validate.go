package cli

import (
	"fmt"
	"io"

	"github.com/aretw0/espalier/pkg/adapters/file"
	"github.com/aretw0/espalier/pkg/config"
	"github.com/aretw0/espalier/pkg/diagram"
	"github.com/aretw0/espalier/pkg/states"
)

// RunValidate checks every definition in dir, or only ids when given, and
// reports each result. It fails if any definition is invalid.
func RunValidate(out io.Writer, dir string, ids []string) error {
	loader := file.New(dir)
	if len(ids) == 0 {
		var err error
		ids, err = loader.ListDefinitions()
		if err != nil {
			return err
		}
	}
	if len(ids) == 0 {
		return fmt.Errorf("no definitions found in %s", dir)
	}

	reg := states.NewRegistry()
	failed := 0
	for _, id := range ids {
		if err := validateOne(loader, reg, id); err != nil {
			fmt.Fprintf(out, "✗ %s: %v\n", id, err)
			failed++
			continue
		}
		fmt.Fprintf(out, "✓ %s\n", id)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d definitions are invalid", failed, len(ids))
	}
	return nil
}

func validateOne(loader *file.Loader, reg *diagram.Registry, id string) error {
	data, err := loader.GetDefinition(id)
	if err != nil {
		return err
	}
	def, err := config.Parse(data)
	if err != nil {
		return err
	}
	if def.ID != "" && def.ID != id {
		return fmt.Errorf("declares id %q", def.ID)
	}
	return config.Validate(def, reg)
}
