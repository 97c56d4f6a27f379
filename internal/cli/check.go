package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/vendorsync/pkg/archive"
	"github.com/matzehuels/vendorsync/pkg/cache"
	vserrors "github.com/matzehuels/vendorsync/pkg/errors"
	"github.com/matzehuels/vendorsync/pkg/manifest"
	"github.com/matzehuels/vendorsync/pkg/reconcile"
	"github.com/matzehuels/vendorsync/pkg/repoindex"
	"github.com/matzehuels/vendorsync/pkg/specfile"
)

// checkOpts holds the command-line flags for the check command.
type checkOpts struct {
	sourceDir    string // scan an unpacked tree instead of a tarball
	allManifests bool   // scan every Cargo.toml, not just the root one
	updateSpec   string // RPM spec file to rewrite
	exclusions   string // vendor exclusion file to rewrite
	draft        bool   // show diffs without touching files
	format       string // report format: text or json
	refresh      bool   // bypass cached repoquery results
	noCache      bool   // disable the cache entirely
	keepWorkdir  bool   // keep the tarball extraction directory
}

// checkCommand creates the check command, the main reconciliation pipeline:
// unpack (if needed), scan manifests, query the distro index, report, and
// rewrite the packaging artifacts.
func (c *CLI) checkCommand() *cobra.Command {
	opts := checkOpts{format: "text"}

	cmd := &cobra.Command{
		Use:   "check [tarball]",
		Short: "Reconcile crate requirements against the distribution repositories",
		Long: `Check which of a Rust project's crate dependencies the target distribution
already packages, and optionally rewrite the RPM spec file's generated
dependency blocks and the vendor exclusion list to match.

Examples:
  vendorsync check goose-1.13.1.tar.gz --all-manifests
  vendorsync check --source-dir ./goose --update-spec goose.spec --draft
  vendorsync check goose.tar.zst --update-spec goose.spec --exclusions vendor-exclude.toml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tarball := ""
			if len(args) == 1 {
				tarball = args[0]
			}
			return c.runCheck(cmd.Context(), tarball, opts)
		},
	}

	cmd.Flags().StringVar(&opts.sourceDir, "source-dir", "", "scan an unpacked source tree instead of a tarball")
	cmd.Flags().BoolVar(&opts.allManifests, "all-manifests", false, "scan every Cargo.toml in the tree")
	cmd.Flags().StringVar(&opts.updateSpec, "update-spec", "", "RPM spec file to rewrite")
	cmd.Flags().StringVar(&opts.exclusions, "exclusions", "", "vendor exclusion file to rewrite")
	cmd.Flags().BoolVar(&opts.draft, "draft", false, "show diffs without modifying any file")
	cmd.Flags().StringVar(&opts.format, "format", opts.format, "report format: text or json")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "bypass cached repoquery results")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the repoquery cache")
	cmd.Flags().BoolVar(&opts.keepWorkdir, "keep-workdir", false, "keep the tarball extraction directory")

	return cmd
}

// runCheck executes the full pipeline for one release.
func (c *CLI) runCheck(ctx context.Context, tarball string, opts checkOpts) error {
	logger := loggerFromContext(ctx)

	if opts.format != "text" && opts.format != "json" {
		return vserrors.New(vserrors.ErrCodeInvalidInput, "unknown format %q (want text or json)", opts.format)
	}
	if (tarball == "") == (opts.sourceDir == "") {
		return vserrors.New(vserrors.ErrCodeInvalidInput, "provide either a tarball argument or --source-dir, not both")
	}

	// JSON mode keeps stdout parseable: the report is the only output there.
	quiet := opts.format == "json"

	root := opts.sourceDir
	if tarball != "" {
		spin := newSpinner(ctx, fmt.Sprintf("Extracting %s", tarball))
		spin.Start()
		dir, cleanup, err := archive.Extract(tarball)
		if err != nil {
			spin.Stop()
			return err
		}
		if quiet {
			spin.Stop()
		} else {
			spin.StopWithSuccess(fmt.Sprintf("Extracted %s", tarball))
		}
		root = dir
		if opts.keepWorkdir {
			logger.Infof("keeping workdir %s", dir)
		} else {
			defer cleanup()
		}
	}

	scan, err := manifest.Scan(root, manifest.ScanOptions{
		AllManifests: opts.allManifests,
		Logger:       logger.Warnf,
	})
	if err != nil {
		return err
	}
	logger.Debugf("scanned %d manifests, %d requirements, %d workspace members",
		scan.ManifestCount, len(scan.Requirements), len(scan.Members))

	// An empty requirement set means the scan was pointed at the wrong tree;
	// proceeding would wipe the generated artifact regions.
	if len(scan.Requirements) == 0 {
		return vserrors.New(vserrors.ErrCodeInvalidInput,
			"no third-party crate requirements found under %s", root)
	}

	// A missing query tool aborts the whole run rather than silently
	// classifying every crate as must-vendor.
	if err := repoindex.CheckAvailable(); err != nil {
		return err
	}

	backend := c.newCacheBackend(ctx, opts.noCache)
	defer backend.Close()

	dnf := repoindex.NewDNF(logger.Warnf)
	index := repoindex.NewCached(dnf, backend, cache.DefaultTTL, opts.refresh)

	var onProgress func(done, total int, req manifest.Requirement, rec *repoindex.Record)
	if !quiet {
		onProgress = func(done, total int, req manifest.Requirement, rec *repoindex.Record) {
			if rec != nil {
				printCrateStatus(done, total, req.Name, rec.Name+" "+rec.Version, true)
			} else {
				printCrateStatus(done, total, req.Name, "", false)
			}
		}
	}

	prog := newProgress(logger)
	result, err := reconcile.Reconcile(ctx, scan.Requirements, index, reconcile.Options{
		Progress: onProgress,
		Logger:   logger.Warnf,
	})
	if err != nil {
		return err
	}

	// All queries failing means the repositories are unreachable, not that
	// every crate is absent. Abort before any artifact is rewritten.
	if dnf.AllLookupsFailed() {
		return vserrors.New(vserrors.ErrCodeQuerySystemic,
			"every repository query failed; repositories appear unreachable")
	}
	prog.done(fmt.Sprintf("Queried %d crates", result.Total()))

	rep := newReport(result)
	if quiet {
		if err := rep.renderJSON(c.stdout()); err != nil {
			return err
		}
	} else {
		printNewline()
		if err := rep.renderText(c.stdout()); err != nil {
			return err
		}
	}

	mode := specfile.Commit
	if opts.draft {
		mode = specfile.Draft
	}

	if opts.updateSpec != "" {
		change, err := specfile.UpdateSpec(opts.updateSpec, result, mode)
		if err != nil {
			return err
		}
		c.reportChange("Spec file", change, opts.draft, quiet)
	}

	if opts.exclusions != "" {
		change, err := specfile.UpdateExclusions(opts.exclusions, result, mode)
		if err != nil {
			return err
		}
		c.reportChange("Exclusion file", change, opts.draft, quiet)
	}

	return nil
}

// reportChange prints the outcome of one artifact rewrite. In quiet mode the
// outcome goes to the logger so stdout stays machine-readable.
func (c *CLI) reportChange(label string, change *specfile.Change, draft, quiet bool) {
	if quiet {
		switch {
		case !change.Changed():
			c.Logger.Infof("%s already up to date: %s", label, change.Path)
		case draft:
			c.Logger.Warnf("%s needs changes (draft, not applied): %s", label, change.Path)
		default:
			c.Logger.Infof("%s updated: %s", label, change.Path)
		}
		return
	}

	printNewline()
	switch {
	case !change.Changed():
		printInfo("%s already up to date", label)
		printDetail("%s", change.Path)
	case draft:
		printWarning("%s needs changes (draft, not applied)", label)
		fmt.Print(change.Diff)
	default:
		printSuccess("%s updated", label)
		printFile(change.Path)
	}
}
