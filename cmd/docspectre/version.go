package main

import (
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// NewVersionCmd creates the version command
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("docspectre %s\n", version)
			info, _ := debug.ReadBuildInfo()
			for _, line := range buildDetails(info) {
				cmd.Println(line)
			}
			cmd.Printf("go: %s\n", runtime.Version())
			cmd.Printf("platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}

// buildDetails lists the module path and, when stamped by the toolchain,
// the VCS revision the binary was built from.
func buildDetails(info *debug.BuildInfo) []string {
	if info == nil {
		return nil
	}

	var lines []string
	if info.Main.Path != "" {
		lines = append(lines, "module: "+info.Main.Path)
	}

	var revision, modified string
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.modified":
			modified = s.Value
		}
	}
	if revision != "" {
		if len(revision) > 12 {
			revision = revision[:12]
		}
		if modified == "true" {
			revision += " (dirty)"
		}
		lines = append(lines, "commit: "+revision)
	}
	return lines
}
