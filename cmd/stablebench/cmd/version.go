// Copyright © 2018 One Concern

package cmd

import (
	"bytes"
	"fmt"

	"github.com/oneconcern/stablebench/pkg/bench"

	"github.com/spf13/cobra"
)

// Build information, set with -ldflags -X
var (
	Version   string
	BuildDate string
	GitCommit string
	GitState  string
)

// VersionInfo describes the build of the binary
type VersionInfo struct {
	Version        string `json:"version,omitempty"`
	BuildDate      string `json:"buildDate,omitempty"`
	GitCommit      string `json:"gitCommit,omitempty"`
	GitState       string `json:"gitState,omitempty"`
	ResultsVersion string `json:"resultsVersion,omitempty"`
}

// NewVersionInfo reports the build information, "dev" when not set at build time
func NewVersionInfo() VersionInfo {
	ver := VersionInfo{
		Version:        "dev",
		BuildDate:      BuildDate,
		GitCommit:      GitCommit,
		ResultsVersion: bench.ResultsVersion,
	}
	if Version != "" {
		ver.Version = Version
		ver.GitState = "clean"
	}
	if GitState != "" {
		ver.GitState = GitState
	}
	return ver
}

func (v VersionInfo) String() string {
	var buf bytes.Buffer
	buf.WriteString("Version: ")
	buf.WriteString(v.Version)
	buf.WriteString("\n")
	buf.WriteString("Build date: ")
	buf.WriteString(v.BuildDate)
	buf.WriteString("\n")
	buf.WriteString("Commit: ")
	buf.WriteString(v.GitCommit)
	buf.WriteString("\n")
	buf.WriteString("Working tree: ")
	buf.WriteString(v.GitState)
	buf.WriteString("\n")
	buf.WriteString("Results format: ")
	buf.WriteString(v.ResultsVersion)
	buf.WriteString("\n")
	return buf.String()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "prints the version of stablebench",
	Long: `Prints the version of stablebench. It includes the following components:
	* Semver (output of git describe --tags)
	* Build Date (date at which the binary was built)
	* Git Commit (the git commit hash this binary was built from)
	* Git State (when dirty there were uncommitted changes during the build)
	* Results format (version of the results files written and read)
`,
	Run: func(cmd *cobra.Command, args []string) {
		_, _ = fmt.Fprint(cmd.OutOrStdout(), NewVersionInfo().String())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
