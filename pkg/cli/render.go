package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jinzhu/inflection"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/reportly-app/reportly/pkg/models"
	"github.com/reportly-app/reportly/pkg/report"
	sqltext "github.com/reportly-app/reportly/pkg/sql"
)

// designFile is the YAML form of a report layout.
type designFile struct {
	HeaderText     string `yaml:"header_text"`
	FooterText     string `yaml:"footer_text"`
	TableTheme     string `yaml:"table_theme"`
	ShowBorders    bool   `yaml:"show_borders"`
	AutoFitColumns bool   `yaml:"auto_fit_columns"`
	// Logo is resolved relative to the design file.
	Logo string `yaml:"logo"`
}

type renderOptions struct {
	design string
	logo   string
	output string
}

func newRenderCommand() *cobra.Command {
	opts := &renderOptions{}

	cmd := &cobra.Command{
		Use:   "render <data-file>",
		Short: "Build an Excel report from a CSV or XLSX file",
		Long: `Assemble a styled workbook from a data file: optional logo, header banner,
themed table and footer banner. The layout comes from a YAML design file.`,
		Example: `  reportly render sales.csv
  reportly render sales.xlsx --design board.yaml --logo logo.png -o q1.xlsx

  # board.yaml
  header_text: Quarterly Sales
  footer_text: Confidential
  table_theme: TableStyleMedium9
  show_borders: true
  auto_fit_columns: true`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, args[0], opts, time.Now)
		},
	}

	cmd.Flags().StringVar(&opts.design, "design", "", "YAML design file")
	cmd.Flags().StringVar(&opts.logo, "logo", "", "logo image (PNG, JPEG or GIF); overrides the design file's logo")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output path (default: report_<date>.xlsx)")

	return cmd
}

func runRender(cmd *cobra.Command, dataPath string, opts *renderOptions, now func() time.Time) error {
	data, err := os.ReadFile(dataPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", dataPath, err)
	}
	table, err := report.ParseDataFile(dataPath, bytes.NewReader(data))
	if err != nil {
		return err
	}
	if !table.Supported {
		return fmt.Errorf("%s: %s", dataPath, report.UnsupportedFileMessage)
	}

	layout, logoPath, err := loadDesign(opts.design)
	if err != nil {
		return err
	}
	if opts.logo != "" {
		logoPath = opts.logo
	}

	if err := sqltext.CheckFields(
		[2]string{"header text", layout.HeaderText},
		[2]string{"footer text", layout.FooterText},
	); err != nil {
		return err
	}
	if err := report.ValidateTheme(layout.TableTheme); err != nil {
		return err
	}

	var logo []byte
	if logoPath != "" {
		if logo, err = os.ReadFile(logoPath); err != nil {
			return fmt.Errorf("failed to read logo: %w", err)
		}
	}

	result, err := report.NewAssembler(now).Assemble(report.NewDesign(table.Rows, layout, logo))
	if err != nil {
		return err
	}

	out := opts.output
	if out == "" {
		out = result.FileName
	}
	if err := os.WriteFile(out, result.Data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", out, err)
	}

	rows := len(table.Rows) - 1
	noun := "row"
	if rows != 1 {
		noun = inflection.Plural(noun)
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d data %s)\n", out, rows, noun)
	return err
}

// loadDesign reads a design file. An empty path yields the default layout.
func loadDesign(path string) (models.DesignLayout, string, error) {
	if path == "" {
		return models.DesignLayout{}.WithDefaults(), "", nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return models.DesignLayout{}, "", fmt.Errorf("failed to read design file: %w", err)
	}

	var df designFile
	if err := yaml.Unmarshal(raw, &df); err != nil {
		return models.DesignLayout{}, "", fmt.Errorf("failed to parse %s: %w", path, err)
	}

	logo := df.Logo
	if logo != "" && !filepath.IsAbs(logo) {
		logo = filepath.Join(filepath.Dir(path), logo)
	}

	layout := models.DesignLayout{
		HeaderText:     df.HeaderText,
		FooterText:     df.FooterText,
		TableTheme:     df.TableTheme,
		ShowBorders:    df.ShowBorders,
		AutoFitColumns: df.AutoFitColumns,
	}.WithDefaults()
	return layout, logo, nil
}
