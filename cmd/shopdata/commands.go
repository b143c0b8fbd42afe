package main

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/arthur-debert/shopdata/catalog"
	"github.com/arthur-debert/shopdata/inspect"
	"github.com/arthur-debert/shopdata/query"
	"github.com/arthur-debert/shopdata/sampledata"
	"github.com/arthur-debert/shopdata/server"
	"github.com/arthur-debert/shopdata/storage"
	"github.com/arthur-debert/shopdata/types"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

func (cli *CLI) addServeCommand() {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the shop API over HTTP",
		Long: `Serve the shop API from the data directory until interrupted.

With --watch, documents are cached in memory and the cache is refreshed
when files change on disk.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.executeServe(cmd)
		},
	}
	cmd.Flags().String("addr", server.DefaultAddr, "Listen address")
	cmd.Flags().Bool("watch", false, "Cache documents and reload them when they change")
	cmd.Flags().Duration("read-timeout", server.DefaultReadTimeout, "HTTP read timeout")
	cmd.Flags().Duration("write-timeout", server.DefaultWriteTimeout, "HTTP write timeout")
	cli.rootCmd.AddCommand(cmd)
}

func (cli *CLI) executeServe(cmd *cobra.Command) error {
	ctx := cmd.Context()
	dir := cli.dataDir()

	var source storage.Source = dir
	g, ctx := errgroup.WithContext(ctx)
	if cli.cfg.Watch {
		cache := storage.NewCache(dir)
		source = cache
		watcher := storage.NewWatcher(dir.Root(), cache, cli.logger)
		g.Go(func() error { return watcher.Run(ctx) })
	}

	srv := server.New(source,
		server.WithAddr(cli.cfg.Addr),
		server.WithTimeouts(cli.cfg.ReadTimeout, cli.cfg.WriteTimeout),
		server.WithLocale(cli.cfg.Locale),
		server.WithLogger(cli.logger))
	g.Go(func() error { return srv.Run(ctx) })

	fmt.Fprintf(cli.errOut, "Serving %s on %s\n", dir.Root(), cli.cfg.Addr)
	if err := g.Wait(); err != nil {
		return WrapError("serve", err, suggest.CheckDataDir)
	}
	return nil
}

func (cli *CLI) addQueryCommand() {
	cmd := &cobra.Command{
		Use:   "query <resource> [param=value ...]",
		Short: "Filter, sort and page a catalog resource",
		Long: `Query a catalog resource the way the list endpoints do.

Filters are given as param=value arguments; the accepted params of each
resource are:

` + describeResources(),
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.executeQuery(cmd, args)
		},
	}
	cmd.Flags().String("sort", "", "Sort key")
	cmd.Flags().Int("limit", types.DefaultLimit, "Page size")
	cmd.Flags().Int("offset", 0, "Records to skip")
	cmd.Flags().String("id", "", "Show the single record with this id")
	cli.rootCmd.AddCommand(cmd)
}

func describeResources() string {
	var b strings.Builder
	for _, r := range catalog.Resources() {
		fmt.Fprintf(&b, "  %-16s %s\n", r.Name, strings.Join(r.Schema.ParamNames(), ", "))
	}
	return b.String()
}

func (cli *CLI) executeQuery(cmd *cobra.Command, args []string) error {
	r, ok := catalog.Lookup(args[0])
	if !ok {
		return NewValidationError("query", "resource", args[0],
			"Available resources: "+strings.Join(resourceNames(), ", "))
	}

	params, err := queryParams(r, args[1:])
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("sort") {
		name, _ := flags.GetString("sort")
		if _, ok := r.Schema.LookupSort(name); !ok {
			return NewValidationError("query "+r.Name, "sort key", name,
				"Available sort keys: "+strings.Join(r.Schema.SortNames(), ", "))
		}
		params.Set(query.ParamSortBy, name)
	}
	for _, name := range []string{query.ParamLimit, query.ParamOffset} {
		if flags.Changed(name) {
			n, _ := flags.GetInt(name)
			params.Set(name, strconv.Itoa(n))
		}
	}

	cat := catalog.New(cli.dataDir(), catalog.WithLogger(cli.logger))

	if id, _ := flags.GetString("id"); id != "" {
		record, err := cat.Find(cmd.Context(), r, id)
		if errors.Is(err, catalog.ErrNotFound) {
			return NewNotFoundError("query "+r.Name, strings.TrimSuffix(r.Name, "s"), id)
		}
		if err != nil {
			return WrapError("query "+r.Name, err, suggest.CheckDataDir, suggest.SeedData)
		}
		if cli.cfg.Format == "table" {
			return writeYAML(cli.out, record)
		}
		return cli.outputResult(record)
	}

	result, err := cat.List(cmd.Context(), r, params)
	if err != nil {
		return WrapError("query "+r.Name, err, suggest.CheckDataDir, suggest.SeedData)
	}

	if cli.cfg.Format != "table" {
		body := map[string]interface{}{r.Key: result.Items}
		if r.Paginated {
			body["pagination"] = result.Pagination()
		}
		return cli.outputResult(body)
	}

	if err := writeTable(cli.out, resourceColumns[r.Name], result.Items); err != nil {
		return err
	}
	if r.Paginated {
		fmt.Fprintf(cli.out, "\nShowing %d-%d of %s\n",
			min(result.Offset+1, result.Total),
			result.Offset+len(result.Items),
			humanize.Comma(int64(result.Total)))
	} else {
		fmt.Fprintf(cli.out, "\n%s %s\n", humanize.Comma(int64(result.Total)), r.Name)
	}
	return nil
}

// queryParams parses param=value arguments, rejecting params the
// resource does not know.
func queryParams(r catalog.Resource, args []string) (url.Values, error) {
	known := map[string]bool{}
	for _, name := range r.Schema.ParamNames() {
		known[name] = true
	}

	params := url.Values{}
	for _, arg := range args {
		name, value, ok := strings.Cut(arg, "=")
		if !ok || name == "" {
			return nil, NewValidationError("query "+r.Name, "filter", arg,
				"Use the form param=value, e.g. status=active")
		}
		if !known[name] {
			return nil, NewValidationError("query "+r.Name, "param", name,
				"Available params: "+strings.Join(r.Schema.ParamNames(), ", "))
		}
		params.Add(name, value)
	}
	return params, nil
}

func resourceNames() []string {
	var names []string
	for _, r := range catalog.Resources() {
		names = append(names, r.Name)
	}
	return names
}

func (cli *CLI) addInspectCommand() {
	cmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Browse a data file",
		Long: `Render a data file the way the data browser does.

Array documents are filtered with --search and the record at --index
(among the matches) is shown. --expand opens nested values by path,
e.g. --expand preferences --expand purchaseHistory; without it
the default paths are open. --toggle flips paths relative to that set.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.executeInspect(cmd, args[0])
		},
	}
	cmd.Flags().Int("index", 0, "Record to show among the matches")
	cmd.Flags().String("search", "", "Only records containing this text")
	cmd.Flags().StringArray("expand", nil, "Open this path (repeatable)")
	cmd.Flags().StringArray("toggle", nil, "Flip this path (repeatable)")
	cmd.Flags().Bool("list", false, "List the matching records")
	cli.rootCmd.AddCommand(cmd)
}

func (cli *CLI) executeInspect(cmd *cobra.Command, name string) error {
	flags := cmd.Flags()
	req := inspect.BrowseRequest{}
	req.Index, _ = flags.GetInt("index")
	req.Search, _ = flags.GetString("search")
	toggle, _ := flags.GetStringArray("toggle")
	req.Toggle = nodePaths(toggle)
	if flags.Changed("expand") {
		paths, _ := flags.GetStringArray("expand")
		req.Expanded = inspect.NewPathSet(nodePaths(paths)...)
	}

	value, err := cli.dataDir().ReadValue(cmd.Context(), name)
	if errors.Is(err, storage.ErrNotFound) {
		return NewNotFoundError("inspect", "file", name, suggest.ListFiles)
	}
	if err != nil {
		return WrapError("inspect", err, suggest.CheckDataDir)
	}

	result, err := inspect.Browse(value, req, inspect.WithLocale(cli.cfg.Locale))
	if errors.Is(err, inspect.ErrIndexOutOfRange) {
		return NewValidationError("inspect", "index", strconv.Itoa(req.Index),
			fmt.Sprintf("%d records match; use --list to see them", result.Matches))
	}
	if err != nil {
		return WrapError("inspect", err)
	}

	if cli.cfg.Format != "table" {
		return cli.outputResult(result)
	}

	if list, _ := flags.GetBool("list"); list && result.IsArray {
		for _, e := range result.Records {
			fmt.Fprintf(cli.out, "%4d  %s (%d fields)\n", e.Index, e.Label, e.Fields)
		}
		fmt.Fprintln(cli.out)
	}
	if result.IsArray {
		fmt.Fprintf(cli.out, "%s: record %d of %d matches (%d records)\n",
			name, result.Index+1, result.Matches, result.RecordCount)
	}
	if result.Tree == nil {
		fmt.Fprintln(cli.out, "No records match.")
		return nil
	}
	writeTree(cli.out, *result.Tree)
	return nil
}

// nodePaths accepts "preferences.brands" as well as ".preferences.brands".
func nodePaths(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if p == "" {
			continue
		}
		if !strings.HasPrefix(p, ".") && !strings.HasPrefix(p, "[") {
			p = "." + p
		}
		out = append(out, p)
	}
	return out
}

func (cli *CLI) addFilesCommand() {
	cmd := &cobra.Command{
		Use:   "files",
		Short: "List the JSON files of the data directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.executeFiles(cmd)
		},
	}
	cli.rootCmd.AddCommand(cmd)
}

func (cli *CLI) executeFiles(cmd *cobra.Command) error {
	files, err := cli.dataDir().List(cmd.Context())
	if err != nil {
		return WrapError("list files", err, suggest.CheckDataDir, suggest.SeedData)
	}
	if files == nil {
		files = []storage.FileInfo{}
	}
	if cli.cfg.Format != "table" {
		return cli.outputResult(map[string]interface{}{"files": files})
	}

	if len(files) == 0 {
		fmt.Fprintf(cli.out, "No JSON files in %s\n", cli.cfg.DataDir)
		return nil
	}
	now := cli.now()
	records := make([]types.Record, len(files))
	for i, f := range files {
		records[i] = types.Record{
			"name":     f.Name,
			"records":  f.RecordCount,
			"size":     f.HumanSize(),
			"modified": f.HumanModified(now),
		}
	}
	return writeTable(cli.out, []column{
		{"NAME", "name"}, {"RECORDS", "records"}, {"SIZE", "size"}, {"MODIFIED", "modified"},
	}, records)
}

func (cli *CLI) addSeedCommand() {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Write the sample shop dataset into the data directory",
		Long: `Write the built-in sample dataset (customers, orders, products,
promotions, shipping and support tickets) into the data directory.
Existing files are kept unless --force is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			force, _ := cmd.Flags().GetBool("force")
			return cli.executeSeed(cmd, force)
		},
	}
	cmd.Flags().Bool("force", false, "Overwrite existing files")
	cli.rootCmd.AddCommand(cmd)
}

// SeedReport is the structured output of seed.
type SeedReport struct {
	DataDir string   `json:"dataDir"`
	Written []string `json:"written"`
	Skipped []string `json:"skipped"`
}

func (cli *CLI) executeSeed(cmd *cobra.Command, force bool) error {
	dir := cli.dataDir()
	written, skipped, err := sampledata.Seed(cmd.Context(), dir, force)
	if err != nil {
		return WrapError("seed", err, suggest.CheckPerms)
	}
	cli.logger.Info("seeded data directory", "dir", dir.Root(), "written", len(written), "skipped", len(skipped))

	report := SeedReport{DataDir: dir.Root(), Written: written, Skipped: skipped}
	if report.Written == nil {
		report.Written = []string{}
	}
	if report.Skipped == nil {
		report.Skipped = []string{}
	}
	if cli.cfg.Format != "table" {
		return cli.outputResult(report)
	}

	for _, name := range written {
		fmt.Fprintf(cli.out, "wrote   %s\n", name)
	}
	for _, name := range skipped {
		fmt.Fprintf(cli.out, "skipped %s (exists, use --force)\n", name)
	}
	return nil
}

func (cli *CLI) addConfigCommand() {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.executeShowConfig()
		},
	}
	cli.rootCmd.AddCommand(cmd)
}

func (cli *CLI) executeShowConfig() error {
	if cli.cfg.Format == "json" {
		settings := cli.v.AllSettings()
		settings["_config_file"] = cli.v.ConfigFileUsed()
		return cli.outputResult(settings)
	}

	if file := cli.v.ConfigFileUsed(); file != "" {
		fmt.Fprintf(cli.out, "# config file: %s\n", file)
	}
	enc := yaml.NewEncoder(cli.out)
	enc.SetIndent(2)
	if err := enc.Encode(cli.cfg); err != nil {
		return err
	}
	return enc.Close()
}
