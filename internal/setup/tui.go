// Package setup provides the first-run terminal wizard that writes a
// config.yaml for the dashboard.
package setup

import (
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/bitdash/bitdash/config"
)

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#F7931A", Dark: "#F7931A"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("230")).
			Background(highlight).
			Padding(1, 2).
			Bold(true).
			MarginBottom(1)

	stepStyle = lipgloss.NewStyle().
			Foreground(highlight).
			Bold(true).
			MarginTop(1)
)

type wizardFile struct {
	DataSource     string `yaml:"data_source"`
	Currency       string `yaml:"currency"`
	InitialCash    string `yaml:"initial_cash"`
	UpdateInterval string `yaml:"update_interval"`
	ListenAddr     string `yaml:"listen_addr"`
}

// RunTUI launches the configuration wizard and writes the result to path.
func RunTUI(path string) error {
	defaults := config.Default()

	dataSource := defaults.DataSource
	currency := defaults.Currency
	initialCash := defaults.InitialCash.String()
	updateInterval := defaults.UpdateInterval.String()
	listenAddr := defaults.ListenAddr
	confirm := false

	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("BITDASH SETUP"))
	fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render("Configure your simulated trading dashboard.\n"))

	fmt.Println(stepStyle.Render("STEP 1: MARKET DATA"))
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Select market data source").
				Options(
					huh.NewOption("Simulated (no network needed)", config.SourceSimulate),
					huh.NewOption("Binance public API", config.SourceBinance),
					huh.NewOption("Bybit public API", config.SourceBybit),
				).
				Value(&dataSource),
			huh.NewInput().
				Title("Quote currency").
				Value(&currency),
			huh.NewInput().
				Title("Update interval (e.g. 60s, 5m)").
				Value(&updateInterval),
		),
	).Run()
	if err != nil {
		return err
	}

	fmt.Println(stepStyle.Render("STEP 2: WALLET"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Initial cash balance").
				Validate(validateDecimal).
				Value(&initialCash),
		),
	).Run()
	if err != nil {
		return err
	}

	fmt.Println(stepStyle.Render("STEP 3: SERVER"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Listen address").
				Value(&listenAddr),
			huh.NewConfirm().
				Title(fmt.Sprintf("Write configuration to %s?", path)).
				Value(&confirm),
		),
	).Run()
	if err != nil {
		return err
	}
	if !confirm {
		return errors.New("setup cancelled")
	}

	out, err := yaml.Marshal(wizardFile{
		DataSource:     dataSource,
		Currency:       currency,
		InitialCash:    initialCash,
		UpdateInterval: updateInterval,
		ListenAddr:     listenAddr,
	})
	if err != nil {
		return errors.Wrap(err, "encode config")
	}

	if err := os.WriteFile(path, out, 0o644); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}

	fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render("\nConfig written. Start the dashboard with: bitdash --config " + path))
	return nil
}

func validateDecimal(s string) error {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("must be a decimal number")
	}
	if d.LessThan(decimal.Zero) {
		return fmt.Errorf("must not be negative")
	}
	return nil
}
