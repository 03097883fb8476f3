package main

import (
	"fmt"
	"io"
	"log"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/msfs-tools/sdkfetch/contracts"
	"github.com/msfs-tools/sdkfetch/core"
	"github.com/msfs-tools/sdkfetch/shell"
)

type App struct {
	config    Config
	installer *core.Installer
	out       io.Writer
}

func NewApp(config Config, out, progress io.Writer) *App {
	downloader := core.NewRetryClient(shell.NewHTTPDownloader(shell.NewHTTPClient()), config.MaxRetry)
	installer := core.NewInstaller(
		config.DataDirectory,
		downloader,
		shell.NewDiskFileSystem(),
		newTempFileSpool,
		newProgressPrinter(progress),
	)
	return &App{config: config, installer: installer, out: out}
}

func newTempFileSpool() (contracts.Spool, error) {
	return shell.NewTempFileSpool()
}

type operation func(contracts.ProductLine) (core.Outcome, error)

func (this *App) run(names []string, verb string, apply operation) error {
	lines, err := this.config.ProductLines(names)
	if err != nil {
		return err
	}
	for _, line := range lines {
		outcome, err := apply(line)
		if err != nil {
			return fmt.Errorf("%s %s: %w", verb, line.Name, err)
		}
		log.Printf("[INFO] %s: %s", line.Title, outcome)
	}
	return nil
}

func (this *App) Install(names []string) error {
	return this.run(names, "install", this.installer.Install)
}

func (this *App) Update(names []string) error {
	return this.run(names, "update", this.installer.Update)
}

func (this *App) Remove(names []string) error {
	return this.run(names, "remove", this.installer.Remove)
}

func (this *App) Info(names []string) error {
	lines := core.Filter(contracts.ProductLines(), names)
	if len(lines) == 0 {
		return fmt.Errorf("no product line matches %v", names)
	}
	table := tabwriter.NewWriter(this.out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(table, "LINE\tINSTALLED\tLATEST\tROOT")
	for _, line := range lines {
		line, _ = this.config.ProductLine(line.Name)
		status, err := this.installer.Status(line)
		latest := status.Latest
		if err != nil {
			log.Printf("[WARN] %s: %s", line.Title, err)
			latest = "unavailable"
		}
		installed := status.Installed
		if !status.IsInstalled {
			installed = "-"
		}
		_, _ = fmt.Fprintf(table, "%s\t%s\t%s\t%s\n", line.Name, installed, latest, status.Installation.Root)
	}
	return table.Flush()
}

// Paths prints what the build tooling needs: the installation root and the
// WASI sysroot inside it.
func (this *App) Paths(name string) error {
	line, err := this.config.ProductLine(name)
	if err != nil {
		return err
	}
	installation := this.installer.Installation(line)
	_, _ = fmt.Fprintf(this.out, "root=%s\nsysroot=%s\nrecord=%s\n",
		installation.Root, installation.WASISysroot(), installation.RecordPath())
	return nil
}

///////////////////////////////////////////////////////////////

func newRootCommand(out, progress io.Writer) *cobra.Command {
	var app *App
	root := &cobra.Command{
		Use:           "sdkfetch",
		Short:         "Download and install the Microsoft Flight Simulator SDK",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String(keyDataDirectory, "", "Directory holding one installation per product line (env SDKFETCH_DATA_DIR).")
	root.PersistentFlags().Int(keyMaxRetry, 0, "How many times to retry failed downloads (env SDKFETCH_MAX_RETRY).")
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		v, err := newViper(cmd.Flags())
		if err != nil {
			return err
		}
		config, err := loadConfig(v)
		if err != nil {
			return err
		}
		app = NewApp(config, out, progress)
		return nil
	}

	lines := "msfs2020 | msfs2024"
	root.AddCommand(
		&cobra.Command{
			Use:   "install <line>...",
			Short: "Install the newest SDK unless one is already installed (" + lines + ")",
			Args:  cobra.MinimumNArgs(1),
			RunE:  func(cmd *cobra.Command, args []string) error { return app.Install(args) },
		},
		&cobra.Command{
			Use:   "update <line>...",
			Short: "Replace an installed SDK when a newer release is published",
			Args:  cobra.MinimumNArgs(1),
			RunE:  func(cmd *cobra.Command, args []string) error { return app.Update(args) },
		},
		&cobra.Command{
			Use:   "remove <line>...",
			Short: "Delete an installed SDK",
			Args:  cobra.MinimumNArgs(1),
			RunE:  func(cmd *cobra.Command, args []string) error { return app.Remove(args) },
		},
		&cobra.Command{
			Use:   "info [line]...",
			Short: "Show installed and latest releases",
			RunE:  func(cmd *cobra.Command, args []string) error { return app.Info(args) },
		},
		&cobra.Command{
			Use:   "paths <line>",
			Short: "Print the installation root and WASI sysroot",
			Args:  cobra.ExactArgs(1),
			RunE:  func(cmd *cobra.Command, args []string) error { return app.Paths(args[0]) },
		},
		&cobra.Command{
			Use:               "version",
			Short:             "Print the sdkfetch version",
			PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
			Run: func(cmd *cobra.Command, args []string) {
				_, _ = fmt.Fprintf(out, "sdkfetch [%s]\n", ldflagsSoftwareVersion)
			},
		},
	)
	return root
}
