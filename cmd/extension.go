package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"

	"github.com/etnz/tradeledger/config"
)

// Environment passed to extensions.
const (
	EnvConfig  = config.EnvPath
	EnvVerbose = "TL_VERBOSE"
)

// RunExtension attempts to find and execute an external tl-<subcommand> binary.
// It returns (true, exitCode) if an extension was found and executed,
// and (false, 0) if no extension was found.
//
// Extensions receive the global flags through the environment.
func RunExtension(subcommand string, args []string) (bool, int) {
	lp, err := exec.LookPath("tl-" + subcommand)
	if err != nil {
		return false, 0
	}

	cmd := exec.Command(lp, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = stdout
	cmd.Stderr = os.Stderr
	cmd.Env = os.Environ()
	if *configPath != "" {
		cmd.Env = append(cmd.Env, EnvConfig+"="+*configPath)
	}
	cmd.Env = append(cmd.Env, EnvVerbose+"="+strconv.FormatBool(*Verbose))

	if err := cmd.Run(); err != nil {
		var exitError *exec.ExitError
		if errors.As(err, &exitError) {
			return true, exitError.ExitCode()
		}
		fmt.Fprintf(os.Stderr, "Error executing external command %q: %v\n", lp, err)
		return true, 1
	}
	return true, 0
}
