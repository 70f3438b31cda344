package cmd

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/strata-ml/strata/api"
)

// ShowHandler prints the details of a checkpoint.
func ShowHandler(cmd *cobra.Command, args []string) error {
	client, err := api.ClientFromEnvironment()
	if err != nil {
		return err
	}

	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		return err
	}

	resp, err := client.Show(cmd.Context(), &api.ShowRequest{Model: args[0]})
	if err != nil {
		return err
	}

	return showInfo(resp, verbose, os.Stdout)
}

func showInfo(resp *api.ShowResponse, verbose bool, w io.Writer) error {
	tableRender := func(header string, rows func() [][]string) {
		fmt.Fprintln(w, " ", header)
		table := tablewriter.NewWriter(w)
		table.SetAlignment(tablewriter.ALIGN_LEFT)
		table.SetBorder(false)
		table.SetNoWhiteSpace(true)
		table.SetTablePadding("    ")
		table.AppendBulk(rows())
		table.Render()
		fmt.Fprintln(w)
	}

	tableRender("Model", func() (rows [][]string) {
		arch := resp.Details.Family
		if a, ok := resp.ModelInfo["general.architecture"].(string); ok && a != "" {
			arch = a
		}
		if arch != "" {
			rows = append(rows, []string{"", "architecture", arch})
		}

		if resp.Details.ParameterSize != "" {
			rows = append(rows, []string{"", "parameters", resp.Details.ParameterSize})
		}

		for _, attr := range []struct{ label, key string }{
			{"latent dim", "latent_dim"},
			{"image size", "image_size"},
			{"channels", "channels"},
			{"blocks", "block_count"},
		} {
			if v, ok := resp.ModelInfo[fmt.Sprintf("%s.%s", arch, attr.key)].(float64); ok {
				rows = append(rows, []string{"", attr.label, strconv.FormatFloat(v, 'f', -1, 64)})
			}
		}

		rows = append(rows, []string{"", "quantization", resp.Details.QuantizationLevel})
		return
	})

	if resp.ModelInfo != nil && verbose {
		tableRender("Metadata", func() (rows [][]string) {
			keys := make([]string, 0, len(resp.ModelInfo))
			for k := range resp.ModelInfo {
				keys = append(keys, k)
			}
			sort.Strings(keys)

			for _, k := range keys {
				var v string
				switch vData := resp.ModelInfo[k].(type) {
				case bool:
					v = fmt.Sprintf("%t", vData)
				case string:
					v = vData
				case float64:
					v = fmt.Sprintf("%g", vData)
				case []any:
					v = formatArrayValue(vData, 20)
				default:
					v = fmt.Sprintf("%T", vData)
				}
				rows = append(rows, []string{"", k, v})
			}
			return
		})
	}

	if len(resp.Tensors) > 0 && verbose {
		tableRender("Tensors", func() (rows [][]string) {
			for _, t := range resp.Tensors {
				rows = append(rows, []string{"", t.Name, t.Type, fmt.Sprint(t.Shape)})
			}
			return
		})
	}

	return nil
}

// formatArrayValue truncates long arrays to roughly targetWidth
// display columns.
func formatArrayValue(vData []any, targetWidth int) string {
	var itemsToShow int
	totalWidth := 1

	for i := range vData {
		itemStr := fmt.Sprintf("%v", vData[i])
		width := runewidth.StringWidth(itemStr)

		if i > 0 {
			width += 2
		}

		if totalWidth+width > targetWidth && i > 0 {
			break
		}

		totalWidth += width
		itemsToShow++
	}

	if itemsToShow < len(vData) {
		v := fmt.Sprintf("%v", vData[:itemsToShow])
		v = strings.TrimSuffix(v, "]")
		v += fmt.Sprintf(" ...+%d more]", len(vData)-itemsToShow)
		return v
	}

	return fmt.Sprintf("%v", vData)
}

func newShowCmd() *cobra.Command {
	showCmd := &cobra.Command{
		Use:     "show MODEL",
		Short:   "Show information for a model",
		Args:    cobra.ExactArgs(1),
		PreRunE: checkServerHeartbeat,
		RunE:    ShowHandler,
	}

	showCmd.Flags().BoolP("verbose", "v", false, "Show detailed model information")

	return showCmd
}
