package suite

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"
)

const preflightWorkers = 8

// Preflight stat-checks every file and directory the suite references, in
// parallel, before any remote call is made. It returns the first problem
// found: a missing source file, an auxiliary file that cannot be located
// through the include-dir search, or a missing include dir.
func (s *Suite) Preflight(ctx context.Context) error {
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(preflightWorkers)

	checkedSources := make(map[string]struct{})

	for _, test := range s.Tests {
		test := test

		if _, ok := checkedSources[test.FileName]; !ok {
			checkedSources[test.FileName] = struct{}{}

			g.Go(func() error {
				if test.FileName == "" {
					return fmt.Errorf("test %s: no source file configured", test.TestName)
				}

				if !isFile(test.FileName) {
					return fmt.Errorf("test %s: source file %s not found", test.TestName, test.FileName)
				}

				return nil
			})
		}

		for _, aux := range test.AdditionalFiles {
			aux := aux
			g.Go(func() error {
				if _, ok := resolveAuxPath(aux, test.IncludeDirs); !ok {
					return fmt.Errorf("test %s: auxiliary file %s not found, also searched include dirs", test.TestName, aux.Name)
				}

				return nil
			})
		}

		for _, dir := range test.IncludeDirs {
			dir := dir
			g.Go(func() error {
				info, err := os.Stat(dir)
				if err != nil || !info.IsDir() {
					return fmt.Errorf("test %s: include dir %s not found", test.TestName, dir)
				}

				return nil
			})
		}
	}

	return g.Wait()
}
