package blob

import (
	"slices"
	"strings"
	"testing"

	"golang.org/x/tools/go/packages"
)

const driverRoot = "courtcore/internal/infra/blob"

func under(path, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

// archiveImportRules lists who may import what around the audit archive.
var archiveImportRules = []struct {
	name  string
	check func(pkg, imp string) bool
}{
	{
		// services reach drivers only through Open
		name: "driver imported outside the blob package",
		check: func(pkg, imp string) bool {
			return under(imp, driverRoot) && !under(pkg, "courtcore/internal/blob") && !under(pkg, driverRoot)
		},
	},
	{
		name: "driver imports another driver",
		check: func(pkg, imp string) bool {
			return under(pkg, driverRoot) && under(imp, driverRoot) && !sameDriver(pkg, imp)
		},
	},
	{
		name: "archive layer imports the booking services",
		check: func(pkg, imp string) bool {
			return (under(pkg, driverRoot) || under(pkg, "courtcore/internal/blob")) && under(imp, "courtcore/internal/core")
		},
	},
}

func sameDriver(a, b string) bool {
	first := func(p string) string {
		rest := strings.TrimPrefix(strings.TrimPrefix(p, driverRoot), "/")
		name, _, _ := strings.Cut(rest, "/")
		name = strings.TrimSuffix(name, ".test")
		return strings.TrimSuffix(name, "_test")
	}
	return first(a) == first(b)
}

func TestArchiveImportBoundaries(t *testing.T) {
	cfg := &packages.Config{Mode: packages.NeedName | packages.NeedImports, Tests: true}
	pkgs, err := packages.Load(cfg, "courtcore/...")
	if err != nil {
		t.Fatalf("load packages: %v", err)
	}
	var violations []string
	for _, pkg := range pkgs {
		for imp := range pkg.Imports {
			for _, rule := range archiveImportRules {
				if rule.check(pkg.PkgPath, imp) {
					violations = append(violations, rule.name+": "+pkg.PkgPath+" -> "+imp)
				}
			}
		}
	}
	slices.Sort(violations)
	violations = slices.Compact(violations)
	for _, v := range violations {
		t.Errorf("%s", v)
	}
	if len(violations) > 0 {
		t.Fatalf("found %d archive import violations", len(violations))
	}
}

func TestArchiveImportRules(t *testing.T) {
	cases := []struct {
		pkg, imp string
		want     bool
	}{
		{"courtcore/internal/core", driverRoot + "/s3", true},
		{"courtcore/internal/blob", driverRoot + "/s3", false},
		{driverRoot + "/fs", driverRoot + "/memory", true},
		{driverRoot + "/s3", "courtcore/internal/blob/core", false},
		{driverRoot + "/fs.test", driverRoot + "/fs", false},
		{driverRoot + "/memory", "courtcore/internal/core", true},
		{"courtcore/cmd/courtcore", "courtcore/internal/blob", false},
	}
	for _, tc := range cases {
		got := false
		for _, rule := range archiveImportRules {
			got = got || rule.check(tc.pkg, tc.imp)
		}
		if got != tc.want {
			t.Fatalf("%s -> %s: violation=%v, want %v", tc.pkg, tc.imp, got, tc.want)
		}
	}
}
