package core

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// FormatAmount renders a monetary amount with two decimals, e.g. "300.00".
func FormatAmount(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

// Getwd tries to find the project root: the directory named "webclient" or,
// failing that, the nearest ancestor holding a go.mod.
// go-test changes the working directory to the test package being run during tests... this breaks our code...
// see: https://stackoverflow.com/questions/23847003/golang-tests-and-working-directory
// this is a temporary fix for now :(
func Getwd() string {
	root := "webclient"
	wd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}
	currDir := wd
	for {
		if fi, err := os.Stat(currDir); err == nil && fi.IsDir() {
			if filepath.Base(currDir) == root {
				return currDir
			}
			if _, err := os.Stat(filepath.Join(currDir, "go.mod")); err == nil {
				return currDir
			}
		}
		newDir := filepath.Dir(currDir)
		if newDir == string(os.PathSeparator) || newDir == currDir {
			// fall back to the current directory; deployments do not
			// always check out under the repo name
			return wd
		}
		currDir = newDir
	}
}
