// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package runctl

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// runNameRE matches "run<digits>_..." file/dir names, per spec.md §6's
// filesystem layout.
var runNameRE = regexp.MustCompile(`^run(\d+)_`)

// NextRunFile scans outputDir/camp{campaignNum} for existing run files,
// creating the campaign directory if needed, and returns the path for the
// next free run's initial subrun file together with its run number.
//
// Grounded on original_source/src/tui.rs's create_run_file/
// create_camp_dir (directory scan for the max "run<N>_" prefix, `.h5` →
// here `.root` since store writes ROOT containers).
func NextRunFile(outputDir string, campaignNum int) (path string, runNum int, err error) {
	campDir := filepath.Join(outputDir, fmt.Sprintf("camp%d", campaignNum))
	if err := os.MkdirAll(campDir, 0o755); err != nil {
		return "", 0, fmt.Errorf("runctl: could not create campaign dir %q: %w", campDir, err)
	}

	entries, err := os.ReadDir(campDir)
	if err != nil {
		return "", 0, fmt.Errorf("runctl: could not read campaign dir %q: %w", campDir, err)
	}

	maxRun := -1
	for _, e := range entries {
		m := runNameRE.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if n > maxRun {
			maxRun = n
		}
	}

	runNum = maxRun + 1
	file := fmt.Sprintf("run%d_00.root", runNum)
	return filepath.Join(campDir, file), runNum, nil
}

// listRunFiles returns the entries under campDir whose names start with
// "run", in name order. Kept alongside NextRunFile since both deal with
// the same "run<N>_<SS>" naming scheme.
func listRunFiles(campDir string) ([]string, error) {
	entries, err := os.ReadDir(campDir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "run") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
