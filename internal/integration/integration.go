// Package integration provides embedded shell integration snippets.
package integration

import (
	"bytes"
	_ "embed"
	"fmt"
	"os/exec"
	"path/filepath"
	"text/template"
)

// DefaultTop is the number of directories offered to fzf.
const DefaultTop = 50

// ZshFzf contains the zsh shell integration script with fzf support.
//
//go:embed zsh-fzf.sh
var ZshFzf string

// Render renders the integration script for the zsh found in PATH.
func Render() (string, error) {
	zsh, err := exec.LookPath("zsh")
	if err != nil {
		return "", fmt.Errorf("locating zsh: %w", err)
	}

	return RenderFor(zsh, DefaultTop)
}

// RenderFor renders the integration script for the given zsh binary,
// offering the top largest directories.
func RenderFor(zsh string, top int) (string, error) {
	tmpl, err := template.New("zsh-fzf").Parse(ZshFzf)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, map[string]any{
		"ZSH": filepath.ToSlash(zsh),
		"Top": top,
	}); err != nil {
		return "", err
	}

	return buf.String(), nil
}
