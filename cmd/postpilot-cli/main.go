// PostPilot CLI — инструмент командной строки для управления
// публикациями через HTTP API.
//
// Использование:
//
//	postpilot [--api-url URL] [--json] <command> <subcommand> [flags]
//
// Команды:
//
//	auth      Управление сессией Instagram
//	generate  Генерация фото, промптов и текстов
//	photo     Библиотека фотографий
//	post      Управление публикациями
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/avdeev/postpilot/internal/cli"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var apiURL string
	var jsonOutput bool

	rootCmd := &cobra.Command{
		Use:           "postpilot",
		Short:         "PostPilot CLI — scheduled Instagram publishing tool",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "http://localhost:8080", "API server URL")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	clientFn := func() *cli.Client { return cli.NewClient(apiURL) }
	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }

	rootCmd.AddCommand(
		cli.NewAuthCmd(clientFn, outputFn),
		cli.NewGenerateCmd(clientFn, outputFn),
		cli.NewPhotoCmd(clientFn, outputFn),
		cli.NewPostCmd(clientFn, outputFn),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
