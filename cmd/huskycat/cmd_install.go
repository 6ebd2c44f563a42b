package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tinyland-inc/huskycat/internal/huskyerr"
)

var installDir string

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Copy this binary into a directory on PATH",
	RunE:  runInstall,
}

func init() {
	installCmd.Flags().StringVar(&installDir, "dir", "", "destination directory (default: $HOME/.local/bin)")
}

func runInstall(cmd *cobra.Command, args []string) error {
	dest := installDir
	if dest == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return huskyerr.Wrap(huskyerr.KindConfiguration, err, "resolve home directory")
		}
		dest = filepath.Join(home, ".local", "bin")
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return huskyerr.Wrap(huskyerr.KindIO, err, "create %s", dest)
	}

	src, err := os.Executable()
	if err != nil {
		return huskyerr.Wrap(huskyerr.KindIO, err, "resolve current executable")
	}

	target := filepath.Join(dest, "huskycat")
	if err := copyExecutable(src, target); err != nil {
		return err
	}

	fmt.Printf("huskycat: installed to %s\n", target)
	if _, ok := os.LookupEnv("PATH"); ok && !pathContains(dest) {
		fmt.Printf("huskycat: add %s to your PATH to run it as \"huskycat\"\n", dest)
	}
	return nil
}

func copyExecutable(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return huskyerr.Wrap(huskyerr.KindIO, err, "open %s", src)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o755)
	if err != nil {
		return huskyerr.Wrap(huskyerr.KindIO, err, "create %s", dst)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return huskyerr.Wrap(huskyerr.KindIO, err, "copy binary to %s", dst)
	}
	return nil
}

func pathContains(dir string) bool {
	for _, p := range filepath.SplitList(os.Getenv("PATH")) {
		if p == dir {
			return true
		}
	}
	return false
}
