package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/tsiemens/capgain/app"
	"github.com/tsiemens/capgain/app/outfmt"
	"github.com/tsiemens/capgain/config"
	"github.com/tsiemens/capgain/log"
	ptf "github.com/tsiemens/capgain/portfolio"
)

var (
	ConfigFile         string
	SaveConfigFile     string
	Threshold          string
	TaxRate            string
	TaxPlaces          int32
	AvgPricePlaces     int32
	ThresholdExclusive bool
	OutputFormat       string
	OutDir             string
	InputFormat        string
	Currency           string
	FullDecimals       bool
	Jobs               int
	FailFast           bool
	StopOnBlank        bool
	BaseStatusOpt      string
)

// loadConfig builds the effective config: defaults, then --config, then any
// flags set explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()
	if ConfigFile != "" {
		var err error
		cfg, err = config.LoadFromFile(ConfigFile)
		if err != nil {
			return nil, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("threshold") {
		cfg.Rules.TaxFreeThreshold = Threshold
	}
	if flags.Changed("rate") {
		cfg.Rules.TaxRate = TaxRate
	}
	if flags.Changed("tax-places") {
		cfg.Rules.TaxPlaces = TaxPlaces
	}
	if flags.Changed("avg-places") {
		cfg.Rules.AvgPricePlaces = AvgPricePlaces
	}
	if flags.Changed("threshold-exclusive") {
		cfg.Rules.ThresholdExclusive = ThresholdExclusive
	}
	if flags.Changed("format") {
		cfg.Output.Format = OutputFormat
	}
	if flags.Changed("out-dir") {
		cfg.Output.OutDir = OutDir
	}
	if flags.Changed("currency") {
		cfg.Output.Currency = Currency
	}
	if flags.Changed("full-decimals") {
		cfg.Output.FullDecimals = FullDecimals
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func inputFormatFor(name string) string {
	if InputFormat != "auto" {
		return InputFormat
	}
	if strings.EqualFold(filepath.Ext(name), ".csv") {
		return app.InputCsv
	}
	return app.InputJson
}

func makeWriter(cfg *config.Config, stdout io.Writer) (outfmt.TaxWriter, error) {
	switch cfg.Output.Format {
	case config.FormatTable:
		return outfmt.NewSTDWriter(stdout, cfg.RenderOptions()), nil
	case config.FormatCsv:
		return outfmt.NewCSVWriter(cfg.Output.OutDir, cfg.RenderOptions())
	default:
		return outfmt.NewJSONWriter(stdout), nil
	}
}

// Execute the calculation and return the process exit code.
func runWithIO(
	cmd *cobra.Command, args []string,
	stdin io.Reader, stdout io.Writer, errPrinter log.ErrorPrinter) int {

	cfg, err := loadConfig(cmd)
	if err != nil {
		errPrinter.F("Error: %v\n", err)
		return 1
	}
	rules, err := cfg.ToRules()
	if err != nil {
		errPrinter.F("Error: %v\n", err)
		return 1
	}
	if SaveConfigFile != "" {
		if err := cfg.SaveToFile(SaveConfigFile); err != nil {
			errPrinter.F("Error: %v\n", err)
			return 1
		}
		log.Fverbosef(os.Stderr, "Saved configuration to %s\n", SaveConfigFile)
	}

	var initStatus *ptf.PortfolioStatus
	if BaseStatusOpt != "" {
		initStatus, err = app.ParseInitialStatus(BaseStatusOpt)
		if err != nil {
			errPrinter.F("Error parsing --base: %v\n", err)
			return 1
		}
	}

	readers := make([]app.DescribedReader, 0, len(args)+1)
	if len(args) == 0 {
		readers = append(readers, app.DescribedReader{Desc: "stdin", Reader: stdin, Format: inputFormatFor("")})
	}
	for _, name := range args {
		if name == "-" {
			readers = append(readers, app.DescribedReader{Desc: "stdin", Reader: stdin, Format: inputFormatFor("")})
			continue
		}
		fp, err := os.Open(name)
		if err != nil {
			errPrinter.Ln("Error:", err)
			return 1
		}
		defer fp.Close()
		readers = append(readers, app.DescribedReader{Desc: name, Reader: fp, Format: inputFormatFor(name)})
	}

	writer, err := makeWriter(cfg, stdout)
	if err != nil {
		errPrinter.Ln("Error:", err)
		return 1
	}

	opts := app.Options{
		Rules:         rules,
		InitialStatus: initStatus,
		Jobs:          Jobs,
		FailFast:      FailFast,
		StopOnBlank:   StopOnBlank,
	}
	result, err := app.RunApp(readers, opts, writer, errPrinter)
	if err != nil {
		return 1
	}
	if failed := result.FailedRuns(); failed > 0 {
		log.Fverbosef(os.Stderr, "%d of %d runs failed\n", failed, len(result.Runs))
		return 1
	}
	return 0
}

func runRootCmd(cmd *cobra.Command, args []string) {
	code := runWithIO(cmd, args, cmd.InOrStdin(), cmd.OutOrStdout(), &log.StderrErrorPrinter{})
	if code != 0 {
		os.Exit(code)
	}
}

func cmdName() string {
	binName := os.Args[0]
	return filepath.Base(binName)
}

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   cmdName() + " [FILE ...]",
	Short: "Capital gains tax calculation tool",
	Long: fmt.Sprintf(
		`A cli tool which calculates the capital gains tax owed on a sequence of
stock buy and sell operations, using a weighted average cost, carrying forward
losses, and exempting sales at or under a tax-free threshold.

Input is read from the given files, or stdin if none (or "-") are given.
Each line of JSON input is an independent run, formatted as an array of
  {"operation": "buy"|"sell", "unit-cost": 10.00, "quantity": 100}
and produces one line of output:
  [{"tax": 0.00}, ...]

CSV input (*.csv, or --input-fmt csv) should contain a header with these
column names:
%s
Consecutive rows with the same run value form one run.
 `, strings.Join(ptf.ColNames, ", ")),
	PreRunE: validateFlags,
	Run:     runRootCmd,
	Version: "0.1.0",
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	defaults := ptf.DefaultRules()

	RootCmd.PersistentFlags().BoolVarP(&log.VerboseEnabled, "verbose", "v", false,
		"Print verbose output")
	RootCmd.Flags().StringVarP(&ConfigFile, "config", "c", "",
		"YAML or JSON file with rules and output settings. Flags override its values.")
	RootCmd.Flags().StringVar(&SaveConfigFile, "save-config", "",
		"Write the effective configuration (file plus flags) to this YAML or JSON file")
	RootCmd.Flags().StringVar(&Threshold, "threshold", defaults.TaxFreeThreshold.String(),
		"Sales with a total value at or under this amount are not taxed")
	RootCmd.Flags().StringVar(&TaxRate, "rate", defaults.TaxRate.String(),
		"Tax rate applied to taxable gains")
	RootCmd.Flags().Int32Var(&TaxPlaces, "tax-places", defaults.TaxPlaces,
		"Decimal places owed tax is rounded to (half-up)")
	RootCmd.Flags().Int32Var(&AvgPricePlaces, "avg-places", defaults.AvgPricePlaces,
		"Decimal places the weighted average price is rounded to after each buy. "+
			"The default rounds intermediate averages, which can differ from the exact "+
			"computation by a cent; -1 keeps full precision.")
	RootCmd.Flags().BoolVar(&ThresholdExclusive, "threshold-exclusive", defaults.ThresholdExclusive,
		"Tax sales whose value is exactly the threshold")
	RootCmd.Flags().StringVarP(&OutputFormat, "format", "o", config.FormatJson,
		"Output format: json, table or csv")
	RootCmd.Flags().StringVarP(&OutDir, "out-dir", "d", ".",
		"Directory csv output files are written to")
	RootCmd.Flags().StringVar(&InputFormat, "input-fmt", "auto",
		"Input format: auto, json or csv. auto picks csv for *.csv files.")
	RootCmd.Flags().StringVar(&Currency, "currency", "",
		"ISO 4217 currency code used to display amounts in table and csv output. Eg. BRL")
	RootCmd.Flags().BoolVar(&FullDecimals, "full-decimals", false,
		"Print full decimal values in table and csv output, rather than rounding")
	RootCmd.Flags().IntVarP(&Jobs, "jobs", "j", 1,
		"Number of runs to simulate concurrently. 0 for no limit.")
	RootCmd.Flags().BoolVar(&FailFast, "fail-fast", false,
		"Stop after the first run which fails")
	RootCmd.Flags().BoolVar(&StopOnBlank, "stop-on-blank", false,
		"Stop reading JSON input at the first blank line")
	RootCmd.Flags().StringVarP(&BaseStatusOpt, "base", "b", "",
		"Status every run starts from, formatted as nShares:avgPrice[:accumulatedLoss]. "+
			"Eg. 100:10.50:250.00")
}

func validateDecimalFlag(name, value string) error {
	if _, err := decimal.NewFromString(value); err != nil {
		return fmt.Errorf("invalid --%s %q: %v", name, value, err)
	}
	return nil
}

func validateFlags(cmd *cobra.Command, args []string) error {
	if err := validateDecimalFlag("threshold", Threshold); err != nil {
		return err
	}
	if err := validateDecimalFlag("rate", TaxRate); err != nil {
		return err
	}
	switch InputFormat {
	case "auto", app.InputJson, app.InputCsv:
	default:
		return fmt.Errorf("invalid --input-fmt %q", InputFormat)
	}
	return nil
}
