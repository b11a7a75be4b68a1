package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/goliatone/go-command"
	"github.com/spf13/cobra"

	crmquery "github.com/goliatone/go-crmquery"
	"github.com/goliatone/go-crmquery/adapters/gocommand"
	"github.com/goliatone/go-crmquery/core"
	"github.com/goliatone/go-crmquery/migrations"
	"github.com/goliatone/go-crmquery/query"
	sqlstore "github.com/goliatone/go-crmquery/store/sql"
)

func newRootCommand(env *environment) *cobra.Command {
	root := &cobra.Command{
		Use:   "crmquery",
		Short: "Query the CRM catalog for a customer",
		Long: `Run catalog queries against a Salesforce style SOQL endpoint.

Configuration is read from --config, then CRMQUERY_* environment variables
(CRMQUERY_AUTH_ENDPOINT, CRMQUERY_QUERY_ENDPOINT, CRMQUERY_STORAGE_DSN, ...).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return env.printMetrics()
		},
	}
	root.SetOut(env.out)
	root.SetErr(env.errOut)

	flags := root.PersistentFlags()
	flags.StringVar(&env.configFile, "config", "", "config file (yaml, json or toml)")
	flags.BoolVarP(&env.verbose, "verbose", "v", false, "log to stderr")
	flags.BoolVar(&env.metrics, "metrics", false, "print query and grant metrics to stderr")
	flags.String("driver", "", "profile store driver (sqlite3 or postgres)")
	flags.String("dsn", "", "profile store DSN")
	_ = env.viper.BindPFlag("storage.driver", flags.Lookup("driver"))
	_ = env.viper.BindPFlag("storage.dsn", flags.Lookup("dsn"))

	root.AddCommand(
		newQueryCommand(env),
		newResolveCommand(env),
		newRawCommand(env),
		newMigrateCommand(env),
		newProfileCommand(env),
		newAuditCommand(env),
	)
	return root
}

func newQueryCommand(env *environment) *cobra.Command {
	var (
		customerID string
		recordID   string
		limit      int
	)
	cmd := &cobra.Command{
		Use:   "query <operation>",
		Short: "Run a catalog operation for a customer",
		Long:  "Run a catalog operation for a customer. Operations: " + strings.Join(operationNames(), ", "),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			operation, ok := query.ParseOperation(args[0])
			if !ok {
				return fmt.Errorf("unknown operation %q", args[0])
			}
			session, store, err := env.session(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			subs, err := registerFacade(session)
			if err != nil {
				return err
			}
			defer subs.Unsubscribe()

			result, err := gocommand.Query[query.CatalogQueryMessage, core.QueryResult](cmd.Context(), query.CatalogQueryMessage{
				CustomerID: customerID,
				Operation:  operation,
				ID:         recordID,
				Limit:      limit,
			})
			if err != nil {
				return err
			}
			return env.printJSON(result.Raw)
		},
	}
	cmd.Flags().StringVarP(&customerID, "customer", "c", "", "customer id")
	cmd.Flags().StringVar(&recordID, "id", "", "order, address, invoice or order number the operation targets")
	cmd.Flags().IntVar(&limit, "limit", 0, "row limit for recent_orders")
	_ = cmd.MarkFlagRequired("customer")
	return cmd
}

func newResolveCommand(env *environment) *cobra.Command {
	var require bool
	cmd := &cobra.Command{
		Use:   "resolve <customer>",
		Short: "Resolve and store the CRM account of a customer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, store, err := env.session(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			subs, err := registerFacade(session)
			if err != nil {
				return err
			}
			defer subs.Unsubscribe()

			resolution, err := gocommand.Query[query.ResolveAccountMessage, core.Resolution](cmd.Context(), query.ResolveAccountMessage{
				CustomerID: args[0],
				Require:    require,
			})
			if err != nil {
				return err
			}
			out := map[string]any{
				"customer_id": args[0],
				"account_id":  resolution.AccountID,
				"status":      string(resolution.Status),
			}
			if resolution.Err != nil {
				out["error"] = resolution.Err.Error()
			}
			return env.printJSON(out)
		},
	}
	cmd.Flags().BoolVar(&require, "require", false, "fail when no account resolves")
	return cmd
}

func newRawCommand(env *environment) *cobra.Command {
	return &cobra.Command{
		Use:   "raw <params>",
		Short: `Run pre-built query params, for example "?q=SELECT+Id+FROM+Account"`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, store, err := env.session(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			subs, err := registerFacade(session)
			if err != nil {
				return err
			}
			defer subs.Unsubscribe()

			result, err := gocommand.Query[query.RawQueryMessage, core.QueryResult](cmd.Context(), query.RawQueryMessage{Params: args[0]})
			if err != nil {
				return err
			}
			return env.printJSON(result.Raw)
		},
	}
}

func newMigrateCommand(env *environment) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the profile store migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := env.loadConfig(cmd.Context())
			if err != nil {
				return err
			}
			store, err := env.openStorage(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()
			fmt.Fprintf(env.out, "migrations applied (%s)\n", migrations.DialectFor(cfg.StorageDriver()))
			return nil
		},
	}
}

func newProfileCommand(env *environment) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Inspect and edit stored customer attributes",
	}

	withProfiles := func(run func(cmd *cobra.Command, store *storage, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			cfg, _, err := env.loadConfig(cmd.Context())
			if err != nil {
				return err
			}
			store, err := env.openStorage(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()
			return run(cmd, store, args)
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "customers",
			Short: "List customers with stored attributes",
			Args:  cobra.NoArgs,
			RunE: withProfiles(func(cmd *cobra.Command, store *storage, _ []string) error {
				customers, err := store.factory.ProfileStore().Customers(cmd.Context())
				if err != nil {
					return err
				}
				return env.printJSON(customers)
			}),
		},
		&cobra.Command{
			Use:   "show <customer>",
			Short: "Print every attribute of a customer",
			Args:  cobra.ExactArgs(1),
			RunE: withProfiles(func(cmd *cobra.Command, store *storage, args []string) error {
				attributes, err := store.factory.ProfileStore().Attributes(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return env.printJSON(attributes)
			}),
		},
		&cobra.Command{
			Use:   "set <customer> <name> <value>",
			Short: "Store one attribute",
			Args:  cobra.ExactArgs(3),
			RunE: withProfiles(func(cmd *cobra.Command, store *storage, args []string) error {
				if err := store.profiles.SetAttribute(cmd.Context(), args[0], args[1], args[2]); err != nil {
					return err
				}
				fmt.Fprintf(env.out, "%s.%s updated\n", args[0], args[1])
				return nil
			}),
		},
	)
	return cmd
}

func newAuditCommand(env *environment) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect the account lookup audit trail",
	}

	var filter sqlstore.ResolutionFilter
	var status string
	var since time.Duration
	list := &cobra.Command{
		Use:   "list",
		Short: "List recorded account lookups, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := env.loadConfig(cmd.Context())
			if err != nil {
				return err
			}
			store, err := env.openStorage(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			filter.Status = core.ResolutionStatus(strings.TrimSpace(status))
			if since > 0 {
				cutoff := time.Now().UTC().Add(-since)
				filter.Since = &cutoff
			}
			page, err := store.factory.ResolutionStore().List(cmd.Context(), filter)
			if err != nil {
				return err
			}
			return env.printJSON(page)
		},
	}
	list.Flags().StringVarP(&filter.CustomerID, "customer", "c", "", "only this customer")
	list.Flags().StringVar(&status, "status", "", "only this status (resolved, resolved_not_persisted, none)")
	list.Flags().DurationVar(&since, "since", 0, "only lookups within this window, for example 24h")
	list.Flags().IntVar(&filter.Page, "page", 1, "page number")
	list.Flags().IntVar(&filter.PerPage, "per-page", 25, "page size")

	var ttl time.Duration
	prune := &cobra.Command{
		Use:   "prune",
		Short: "Delete audit rows older than --older-than",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if ttl <= 0 {
				return fmt.Errorf("--older-than must be positive")
			}
			cfg, _, err := env.loadConfig(cmd.Context())
			if err != nil {
				return err
			}
			store, err := env.openStorage(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			deleted, err := store.factory.ResolutionStore().Prune(cmd.Context(), ttl)
			if err != nil {
				return err
			}
			fmt.Fprintf(env.out, "pruned %d audit rows\n", deleted)
			return nil
		},
	}
	prune.Flags().DurationVar(&ttl, "older-than", 30*24*time.Hour, "age of the rows to delete")

	cmd.AddCommand(list, prune)
	return cmd
}

// registerFacade puts the session queries on a fresh registry. Subscriptions
// live on the process wide dispatcher, so callers release them.
func registerFacade(session *crmquery.Session) (gocommand.Subscriptions, error) {
	facade, err := crmquery.NewFacade(session)
	if err != nil {
		return nil, err
	}
	adapter := gocommand.NewRegistryAdapter(command.NewRegistry())
	subs, err := facade.Register(adapter)
	if err != nil {
		return nil, err
	}
	if err := adapter.Initialize(); err != nil {
		subs.Unsubscribe()
		return nil, err
	}
	return subs, nil
}

func operationNames() []string {
	operations := query.Operations()
	names := make([]string, 0, len(operations))
	for _, operation := range operations {
		names = append(names, string(operation))
	}
	sort.Strings(names)
	return names
}
