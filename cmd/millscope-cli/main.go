// Package main provides the offline CLI for millscope.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"millscope/internal/calculator"
	"millscope/internal/config"
	"millscope/internal/exporter"
	"millscope/internal/importer"
	"millscope/internal/parser"
	"millscope/internal/service/dashboard"
	"millscope/internal/util"
)

var (
	configPath string
	analyzeOut string
	exportOut  string
	pretty     bool
	filterOpts filterFlags
)

// filterFlags 命令行筛选条件，空值表示不修改
type filterFlags struct {
	psm    string
	region string
	estate string
	lmm    string
	start  string
	end    string
}

func (f filterFlags) patch(cmd *cobra.Command) dashboard.FilterPatch {
	var p dashboard.FilterPatch
	set := func(name string, v string, dst **string) {
		if cmd.Flags().Changed(name) {
			val := v
			*dst = &val
		}
	}
	set("psm", f.psm, &p.PSM)
	set("region", f.region, &p.Region)
	set("estate", f.estate, &p.Estate)
	set("lmm", f.lmm, &p.LMM)
	set("start", f.start, &p.StartMonth)
	set("end", f.end, &p.EndMonth)
	return p
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "millscope-cli",
		Short: "Analyze OER / HFC mill workbooks offline",
		Long: `millscope-cli runs the workbook pipeline and the dashboard analytics once,
without starting the HTTP service.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config.toml (default: next to the executable)")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [workbook.xlsx | -]",
		Short: "Print the dashboard for a workbook as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  runAnalyze,
	}
	addFilterFlags(analyzeCmd)
	analyzeCmd.Flags().StringVarP(&analyzeOut, "output", "o", "", "Output file path (default: stdout)")
	analyzeCmd.Flags().BoolVar(&pretty, "pretty", false, "Pretty-print JSON output")

	summaryCmd := &cobra.Command{
		Use:   "summary [workbook.xlsx | -]",
		Short: "Print headline KPIs and data quality for a workbook",
		Args:  cobra.ExactArgs(1),
		RunE:  runSummary,
	}
	addFilterFlags(summaryCmd)

	exportCmd := &cobra.Command{
		Use:   "export [workbook.xlsx | -]",
		Short: "Write the dashboard for a workbook to an Excel file",
		Args:  cobra.ExactArgs(1),
		RunE:  runExport,
	}
	addFilterFlags(exportCmd)
	exportCmd.Flags().StringVarP(&exportOut, "output", "o", "millscope_export.xlsx", "Output workbook path")

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage config.toml",
	}
	configCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write a config.toml with default settings (path from --config)",
		Args:  cobra.NoArgs,
		RunE:  runConfigInit,
	})

	rootCmd.AddCommand(analyzeCmd, summaryCmd, exportCmd, configCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&filterOpts.psm, "psm", "", "PSM filter (all for no filter)")
	cmd.Flags().StringVar(&filterOpts.region, "region", "", "Region filter")
	cmd.Flags().StringVar(&filterOpts.estate, "estate", "", "Estate filter")
	cmd.Flags().StringVar(&filterOpts.lmm, "lmm", "", "LMM filter")
	cmd.Flags().StringVar(&filterOpts.start, "start", "", "Start month (YYYY-MM)")
	cmd.Flags().StringVar(&filterOpts.end, "end", "", "End month (YYYY-MM)")
}

func loadConfig() (*config.AppConfig, error) {
	if configPath == "" {
		return config.LoadConfig()
	}
	cfg, _, err := config.LoadConfigFrom(configPath)
	return cfg, err
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return fmt.Errorf("config already exists: %s", configPath)
		}
	}
	if err := config.SaveConfig(config.DefaultConfig(), configPath); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "config written")
	return nil
}

// openInput 打开工作簿；"-" 表示从标准输入读取
func openInput(cmd *cobra.Command, inputPath string) (*parser.ExcelWorkbook, string, error) {
	if inputPath == "-" {
		wb, err := parser.ReadWorkbook(cmd.InOrStdin())
		return wb, "stdin.xlsx", err
	}
	if _, err := os.Stat(inputPath); os.IsNotExist(err) {
		return nil, "", fmt.Errorf("file not found: %s", inputPath)
	}
	wb, err := parser.OpenWorkbook(inputPath)
	return wb, filepath.Base(inputPath), err
}

// loadController 执行管道并按命令行参数设置筛选
func loadController(cmd *cobra.Command, inputPath string) (*dashboard.Controller, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	wb, source, err := openInput(cmd, inputPath)
	if err != nil {
		return nil, err
	}
	defer wb.Close()

	coordinator := importer.NewCoordinator(nil, importer.Settings{
		ExcludedEstates:     cfg.Workbook.ExcludedEstates,
		MappingHeaderOffset: cfg.Workbook.MappingHeaderOffset,
	}, nil)
	ds, report, err := coordinator.Run(context.Background(), wb, source)
	if err != nil {
		return nil, fmt.Errorf("pipeline failed: %w", err)
	}
	for _, sheet := range report.Sheets {
		for _, msg := range sheet.Errors {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s: %s\n", sheet.SheetName, msg)
		}
	}

	calc := calculator.NewCalculator(calculator.Options{
		TargetOER:     cfg.Analysis.TargetOER,
		RollingMonths: cfg.Analysis.RollingMonths,
		PerformerRows: cfg.Analysis.PerformerRows,
	})
	ctrl := dashboard.NewController(nil, nil, calc)
	ctrl.Load(ds, dashboard.SourceUpload)
	if _, err := ctrl.Update(filterOpts.patch(cmd)); err != nil {
		return nil, fmt.Errorf("invalid filter: %w", err)
	}
	return ctrl, nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctrl, err := loadController(cmd, args[0])
	if err != nil {
		return err
	}
	dash, err := ctrl.Dashboard()
	if err != nil {
		return err
	}

	out := struct {
		Filters   dashboard.FilterView `json:"filters"`
		Dashboard calculator.Dashboard `json:"dashboard"`
	}{ctrl.Filters(), dash}

	var jsonData []byte
	if pretty {
		jsonData, err = json.MarshalIndent(out, "", "  ")
	} else {
		jsonData, err = json.Marshal(out)
	}
	if err != nil {
		return fmt.Errorf("serialization failed: %w", err)
	}

	if analyzeOut != "" {
		if err := os.WriteFile(analyzeOut, jsonData, 0644); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(jsonData))
	return nil
}

func runSummary(cmd *cobra.Command, args []string) error {
	ctrl, err := loadController(cmd, args[0])
	if err != nil {
		return err
	}
	dash, err := ctrl.Dashboard()
	if err != nil {
		return err
	}
	writeSummary(cmd.OutOrStdout(), ctrl.Status(), dash)
	return nil
}

func writeSummary(w io.Writer, st dashboard.Status, dash calculator.Dashboard) {
	fmt.Fprintf(w, "Source:        %s (%s .. %s)\n", st.SourceFile, st.MinMonth, st.MaxMonth)
	fmt.Fprintf(w, "Records:       %d (OER complete %d, fruit complete %d)\n", dash.Records, dash.OERCompleteRecords, dash.FruitCompleteRecords)
	k := dash.KPI
	fmt.Fprintf(w, "OER before:    %s\n", util.FormatOptionalPercent(k.AvgOERBefore))
	fmt.Fprintf(w, "OER after:     %s\n", util.FormatOptionalPercent(k.AvgOERAfter))
	if k.Gain != nil {
		fmt.Fprintf(w, "Gain:          %s\n", util.FormatSignedPercent(*k.Gain))
	}
	fmt.Fprintf(w, "Dominant:      %s\n", k.DominantFruit)
	fmt.Fprintf(w, "LMM:           %s\n", k.LMMStatus)
	if a := dash.Analysis; a != nil && a.Benchmark != nil {
		fmt.Fprintf(w, "Benchmark:     %s, %s\n", a.Benchmark.Status, a.Benchmark.Period)
		fmt.Fprintf(w, "Advice:        %s\n", a.Recommendation.Title)
	}
	if len(dash.Incomplete) > 0 {
		fmt.Fprintf(w, "Incomplete:    %d mills\n", len(dash.Incomplete))
		for _, m := range dash.Incomplete {
			fmt.Fprintf(w, "  - %s: %v\n", m.Estate, m.Missing)
		}
	}
}

func runExport(cmd *cobra.Command, args []string) error {
	ctrl, err := loadController(cmd, args[0])
	if err != nil {
		return err
	}
	f, err := exporter.NewExporter(ctrl).Export(exporter.ExportOptions{
		Progress: func(p exporter.ProgressEvent) {
			fmt.Fprintf(cmd.ErrOrStderr(), "[%3d%%] %s\n", p.Percent, p.Message)
		},
	})
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.SaveAs(exportOut); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "written %s\n", exportOut)
	return nil
}
