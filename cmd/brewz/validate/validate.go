package validatecmd

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"

	"brewz/cmd/brewz/ui"
	"brewz/config"

	"github.com/spf13/cobra"
)

// Cmd returns the "brewz validate" command.
func Cmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE",
		Short: "Check an instruction file and print its plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := config.Load(args[0])
			if err != nil {
				return err
			}
			printPlan(cmd.OutOrStdout(), f)
			return nil
		},
	}
}

func printPlan(w io.Writer, f *config.File) {
	pairs := []ui.Pair{ui.KV("Outlets", strconv.Itoa(f.Outlets))}
	if s := f.Settings; s.IngredientLimit != nil {
		pairs = append(pairs, ui.KV("Low stock below", strconv.Itoa(*s.IngredientLimit)))
	}
	if d := f.Settings.LowQuantityCheckInterval.Std(); d > 0 {
		pairs = append(pairs, ui.KV("Check interval", d.String()))
	}
	if d := f.Settings.PrepTime.Std(); d > 0 {
		pairs = append(pairs, ui.KV("Prep time", d.String()))
	}
	if d := f.Settings.PollInterval.Std(); d > 0 {
		pairs = append(pairs, ui.KV("Poll interval", d.String()))
	}
	fmt.Fprint(w, ui.KeyValues("  ", pairs...))

	var rows [][]string
	for _, ins := range f.Instructions {
		switch ins.Kind {
		case config.KindIngredients:
			for _, lvl := range ins.Ingredients {
				rows = append(rows, []string{ins.Key, "add", lvl.Name, strconv.Itoa(lvl.Quantity)})
			}
		case config.KindBeverages:
			for _, b := range ins.Beverages {
				rows = append(rows, []string{ins.Key, "brew", b.Name, formatRecipe(b.Recipe)})
			}
		default:
			rows = append(rows, []string{ins.Key, "skip", "", ui.Warn("unknown instruction")})
		}
	}
	if len(rows) == 0 {
		fmt.Fprintln(w, ui.WarnMsg("No instructions."))
		return
	}
	fmt.Fprintln(w, ui.Table([]string{"Instruction", "Action", "Name", "Detail"}, rows))
	fmt.Fprintln(w, ui.SuccessMsg("%d instructions are valid.", len(f.Instructions)))
}

func formatRecipe(r map[string]int) string {
	parts := make([]string, 0, len(r))
	for _, name := range slices.Sorted(maps.Keys(r)) {
		parts = append(parts, name+" "+strconv.Itoa(r[name]))
	}
	return strings.Join(parts, ", ")
}
