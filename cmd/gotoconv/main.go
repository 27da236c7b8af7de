// Command gotoconv translates a CBMC-dialect goto binary into the
// equivalent ESBMC-dialect goto binary.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/rafaelsamenezes/goto-transcoder/internal/logger"
	"github.com/rafaelsamenezes/goto-transcoder/internal/transcode"
)

var helpText = `
Usage:
  gotoconv [options] <input> <output>

Translates a CBMC-dialect goto binary (input) into an ESBMC-dialect goto
binary (output).

Options:
  --log-level=...   Minimum level to print (warning | error | silent, default warning)
  --color=...       Force color output (true | false)
  -h, --help        Print this help text
`

func main() {
	osArgs := os.Args[1:]
	options := logger.OutputOptions{LogLevel: logger.LevelWarning}

	argsEnd := 0
	for _, arg := range osArgs {
		switch {
		case arg == "-h", arg == "-help", arg == "--help":
			fmt.Print(helpText)
			os.Exit(0)

		case strings.HasPrefix(arg, "--log-level="):
			switch arg[len("--log-level="):] {
			case "warning":
				options.LogLevel = logger.LevelWarning
			case "error":
				options.LogLevel = logger.LevelError
			case "silent":
				options.LogLevel = logger.LevelSilent
			default:
				logger.PrintErrorToStderr(fmt.Sprintf("invalid --log-level value %q", arg))
				os.Exit(1)
			}

		case strings.HasPrefix(arg, "--color="):
			switch arg[len("--color="):] {
			case "true":
				options.Color = logger.ColorAlways
			case "false":
				options.Color = logger.ColorNever
			default:
				logger.PrintErrorToStderr(fmt.Sprintf("invalid --color value %q", arg))
				os.Exit(1)
			}

		default:
			osArgs[argsEnd] = arg
			argsEnd++
		}
	}
	osArgs = osArgs[:argsEnd]

	if len(osArgs) != 2 {
		logger.PrintErrorToStderr(fmt.Sprintf("expected exactly 2 positional arguments (input, output), got %d", len(osArgs)))
		fmt.Fprint(os.Stderr, helpText)
		os.Exit(1)
	}

	os.Exit(run(osArgs[0], osArgs[1], options))
}

func run(inputPath, outputPath string, options logger.OutputOptions) int {
	log := logger.NewStderrLog(options)

	input, err := os.ReadFile(inputPath)
	if err != nil {
		log.AddMsg(logger.Msg{Kind: logger.Error, Text: fmt.Sprintf("reading %q: %s", inputPath, err)})
		log.Done()
		return 1
	}

	output, err := transcode.CBMCToESBMC(input)
	if err != nil {
		log.AddMsg(logger.Msg{Kind: logger.Error, Text: err.Error()})
		log.Done()
		return 1
	}

	if err := os.WriteFile(outputPath, output, 0o644); err != nil {
		log.AddMsg(logger.Msg{Kind: logger.Error, Text: fmt.Sprintf("writing %q: %s", outputPath, err)})
		log.Done()
		return 1
	}

	log.Done()
	if log.HasErrors() {
		return 1
	}
	return 0
}
