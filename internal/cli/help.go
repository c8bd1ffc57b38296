package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/sasanktumpati/tell/internal/config"
	"github.com/sasanktumpati/tell/internal/render"
)

const version = "0.1.0"

func printHelp(w io.Writer, configOverride string) {
	cfgPath, err := config.ResolvePath(configOverride)
	if err != nil {
		cfgPath = "unavailable (" + err.Error() + ")"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# tell v%s\n\n", version)
	b.WriteString("Stream an answer from a local Ollama model.\n\n")
	b.WriteString("## Usage\n\n")
	b.WriteString("    tell [flags] <prompt...>\n")
	b.WriteString("    tell --switch <model>\n")
	b.WriteString("    tell --models\n\n")
	b.WriteString("Words after the first non-flag argument form the prompt. ")
	b.WriteString("Use `--` to start a prompt with a dash.\n\n")
	b.WriteString("## Flags\n\n")
	b.WriteString("- `--switch <model>` persist the active model\n")
	b.WriteString("- `-m, --model <model>` use a model for this prompt only\n")
	b.WriteString("- `--models` list models installed on the server\n")
	b.WriteString("- `-c, --config <path>` config file path (or `TELL_CONFIG`)\n")
	b.WriteString("- `--debug` log debug information to stderr\n")
	b.WriteString("- `-h, --help` show help\n")
	b.WriteString("- `-v, --version` show version\n\n")
	b.WriteString("## Examples\n\n")
	b.WriteString("    tell why is the sky blue\n")
	b.WriteString("    tell --switch llama3.2\n")
	b.WriteString("    tell -m qwen2.5-coder -- -h flag in tar means what\n\n")
	b.WriteString("## Config\n\n")
	fmt.Fprintf(&b, "File: `%s`\n", cfgPath)

	fmt.Fprintln(w, render.Markdown(b.String(), terminalWidth(w), isTerminalWriter(w)))
}
