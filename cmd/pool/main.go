package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"golang.org/x/term"

	"expensepool/internal/amqp"
	"expensepool/internal/api"
	"expensepool/internal/app"
	"expensepool/internal/backend"
	"expensepool/internal/cache"
	"expensepool/internal/cli"
	"expensepool/internal/config"
	"expensepool/internal/core"
	"expensepool/internal/log"
	"expensepool/internal/services"
	"expensepool/internal/session"
	"expensepool/internal/viewmodel"
)

const usage = `Usage: pool <command> [flags]

Commands:
  signup    -name -email -phone [-password]
  login     -email [-password]
  logout
  profile
  pools     create -name -amount [-type] [-expiry|-days] | list [-type]
  expenses  list -pool | add -pool ... | update -id -pool ... | delete -id -pool [-yes]
  fixed     create -desc -price [-category] [-date] | list
  export    -pool
  watch     -pool
`

// errNotLoggedIn is returned by commands that need a session.
var errNotLoggedIn = errors.New("not logged in, run 'pool login' first")

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// env is the state shared by every command.
type env struct {
	stdin  io.Reader
	in     *bufio.Reader
	stdout io.Writer
	stderr io.Writer

	cfg     *config.Config
	logger  *log.Logger
	backend *backend.Result
	app     *app.App
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return errors.New("missing command")
	}
	if args[0] == "-h" || args[0] == "-help" || args[0] == "help" {
		fmt.Fprint(stdout, usage)
		return nil
	}

	if err := cli.LoadEnvFile(); err != nil {
		return err
	}
	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		return fmt.Errorf("configuration: %w", err)
	}
	logger := cli.SetupLogger(stderr, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := cli.InitBackend(ctx, cfg, logger, stdout)
	if err != nil {
		return err
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Warn("Cleanup failed", log.FieldError, err)
		}
	}()

	sess := session.NewManager(res.Session, logger)
	client := api.NewClient(cfg.APIBaseURL, cfg.HTTPTimeout, sess, logger)
	var opts []app.Option
	opts = append(opts, app.WithLogger(logger))
	if res.AMQP != nil {
		opts = append(opts, app.WithPublisher(res.AMQP))
	}
	a, err := app.Start(ctx, client, sess, opts...)
	if err != nil {
		return err
	}

	e := &env{
		stdin:   stdin,
		in:      bufio.NewReader(stdin),
		stdout:  stdout,
		stderr:  stderr,
		cfg:     cfg,
		logger:  logger,
		backend: res,
		app:     a,
	}
	return e.dispatch(ctx, args[0], args[1:])
}

func (e *env) dispatch(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "signup":
		return e.signUp(ctx, args)
	case "login":
		return e.login(ctx, args)
	case "logout":
		return e.logout(ctx)
	}

	if e.app.Root() != app.RouteMain {
		return errNotLoggedIn
	}
	switch cmd {
	case "profile":
		return e.profile(ctx)
	case "pools":
		return e.sub(ctx, "pools", args, map[string]func(context.Context, []string) error{
			"create": e.poolsCreate,
			"list":   e.poolsList,
		})
	case "expenses":
		return e.sub(ctx, "expenses", args, map[string]func(context.Context, []string) error{
			"list":   e.expensesList,
			"add":    e.expensesAdd,
			"update": e.expensesUpdate,
			"delete": e.expensesDelete,
		})
	case "fixed":
		return e.sub(ctx, "fixed", args, map[string]func(context.Context, []string) error{
			"create": e.fixedCreate,
			"list":   e.fixedList,
		})
	case "export":
		return e.export(ctx, args)
	case "watch":
		return e.watch(ctx, args)
	default:
		fmt.Fprint(e.stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (e *env) sub(ctx context.Context, group string, args []string, cmds map[string]func(context.Context, []string) error) error {
	if len(args) == 0 {
		return fmt.Errorf("%s: missing subcommand", group)
	}
	fn, ok := cmds[args[0]]
	if !ok {
		return fmt.Errorf("%s: unknown subcommand %q", group, args[0])
	}
	return fn(ctx, args[1:])
}

func (e *env) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	return fs
}

// result prints the outcome of a facade call and turns a failure into an
// error.
func result[T any](e *env, res services.Result[T], fallback string) error {
	if res.Success {
		if msg := firstNonEmpty(res.Message, fallback); msg != "" {
			fmt.Fprintln(e.stdout, msg)
		}
		return nil
	}
	var ve *core.ValidationError
	if errors.As(res.Err, &ve) {
		for field, msg := range ve.Fields {
			fmt.Fprintf(e.stderr, "  %s: %s\n", field, msg)
		}
		return errors.New("invalid input")
	}
	return errors.New(core.UserMessage(res.Err, "request failed"))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func (e *env) signUp(ctx context.Context, args []string) error {
	fs := e.flags("signup")
	name := fs.String("name", "", "Full name")
	email := fs.String("email", "", "Email address")
	phone := fs.String("phone", "", "10 digit phone number")
	password := fs.String("password", "", "Password (optional, will prompt if omitted)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	pw, err := e.password(*password)
	if err != nil {
		return err
	}
	return result(e, e.app.SignUp(ctx, core.SignUpInput{Name: *name, Email: *email, PhoneNo: *phone, Password: pw}), "Signup Successful")
}

func (e *env) login(ctx context.Context, args []string) error {
	fs := e.flags("login")
	email := fs.String("email", "", "Email address")
	password := fs.String("password", "", "Password (optional, will prompt if omitted)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	pw, err := e.password(*password)
	if err != nil {
		return err
	}
	return result(e, e.app.Login(ctx, core.LoginInput{Email: *email, Password: pw}), "")
}

func (e *env) logout(ctx context.Context) error {
	return result(e, e.app.Logout(ctx), "")
}

func (e *env) profile(ctx context.Context) error {
	res := e.app.Profile(ctx)
	if !res.Success {
		return result(e, res, "")
	}
	tw := tabwriter.NewWriter(e.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Name:\t%s\n", res.Data.Name)
	fmt.Fprintf(tw, "Email:\t%s\n", res.Data.Email)
	fmt.Fprintf(tw, "Phone:\t%s\n", res.Data.PhoneNo)
	return tw.Flush()
}

// password returns flagValue or prompts for one.
func (e *env) password(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	fmt.Fprint(e.stdout, "Password: ")
	pw, err := e.readPassword()
	fmt.Fprintln(e.stdout)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return pw, nil
}

func (e *env) readPassword() (string, error) {
	if f, ok := e.stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	return e.readLine()
}

func (e *env) readLine() (string, error) {
	line, err := e.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// notifier prints view-model notifications.
func (e *env) notifier() viewmodel.Notifier {
	return viewmodel.NotifierFunc(func(n viewmodel.Notification) {
		if n.Level == viewmodel.LevelError {
			fmt.Fprintln(e.stderr, n.Text)
			return
		}
		fmt.Fprintln(e.stdout, n.Text)
	})
}

// confirmer asks on stdin unless yes is set.
func (e *env) confirmer(yes bool) viewmodel.Confirmer {
	return viewmodel.ConfirmFunc(func(_ context.Context, title, message string) bool {
		if yes {
			return true
		}
		fmt.Fprintf(e.stdout, "%s\n%s [y/N] ", title, message)
		answer, err := e.readLine()
		if err != nil {
			return false
		}
		answer = strings.ToLower(strings.TrimSpace(answer))
		return answer == "y" || answer == "yes"
	})
}

func (e *env) poolsCreate(ctx context.Context, args []string) error {
	fs := e.flags("pools create")
	name := fs.String("name", "", "Pool name (3 to 50 characters)")
	amount := fs.String("amount", "", "Received amount, e.g. 500.00")
	fieldType := fs.String("type", string(core.Personal), "Personal or Team")
	expiry := fs.String("expiry", "", "Expiry date YYYY-MM-DD")
	days := fs.Int("days", 0, "Expire this many days from today (used when -expiry is empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *expiry == "" && *days > 0 {
		*expiry = core.DateOf(time.Now()).AddDays(*days).String()
	}

	pools := viewmodel.NewPoolList(e.app.Expenses(), *fieldType,
		viewmodel.WithNotifier(e.notifier()), viewmodel.WithLogger(e.logger))
	defer pools.Close()
	if err := pools.CreatePool(ctx, core.PoolInput{
		FieldName:      *name,
		ReceivedAmount: *amount,
		FieldType:      *fieldType,
		Expiry:         *expiry,
	}); err != nil {
		return printValidation(e, err)
	}
	return renderPools(e.stdout, pools.State().Data)
}

func (e *env) poolsList(ctx context.Context, args []string) error {
	fs := e.flags("pools list")
	fieldType := fs.String("type", "", "Filter by type (Personal, Team or Primary)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	pools := viewmodel.NewPoolList(e.app.Expenses(), *fieldType, viewmodel.WithLogger(e.logger))
	defer pools.Close()
	if err := pools.Load(ctx); err != nil {
		return errors.New(pools.State().Message)
	}
	return renderPools(e.stdout, pools.State().Data)
}

// openPool loads the pool list the pool belongs to and opens the pool.
func (e *env) openPool(ctx context.Context, poolID string, opts ...viewmodel.Option) (*viewmodel.FixedExpenseList, *viewmodel.PoolList, error) {
	if poolID == "" {
		return nil, nil, errors.New("missing -pool")
	}
	base := []viewmodel.Option{viewmodel.WithNotifier(e.notifier()), viewmodel.WithLogger(e.logger)}
	pools := viewmodel.NewPoolList(e.app.Expenses(), "", append(base, opts...)...)
	if err := pools.Load(ctx); err != nil {
		return nil, nil, errors.New(pools.State().Message)
	}
	screen := viewmodel.ScreenPoolList
	if p, ok := pools.Pool(poolID); ok && string(p.Type) == "Primary" {
		screen = viewmodel.ScreenPrimary
	}
	list, err := pools.Open(poolID, viewmodel.WithScreen(screen))
	if err != nil {
		return nil, nil, err
	}
	return list, pools, nil
}

func (e *env) expensesList(ctx context.Context, args []string) error {
	fs := e.flags("expenses list")
	poolID := fs.String("pool", "", "Pool id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	list, pools, err := e.openPool(ctx, *poolID)
	if err != nil {
		return err
	}
	defer pools.Close()
	defer list.Close()
	if err := list.Load(ctx); err != nil {
		return errors.New(list.State().Message)
	}
	return renderExpenses(e.stdout, list)
}

func expenseFlags(fs *flag.FlagSet, defaultCategory core.Category) (desc, price, category, date *string) {
	desc = fs.String("desc", "", "Description (at least 3 characters)")
	price = fs.String("price", "", "Price, e.g. 12.50")
	category = fs.String("category", string(defaultCategory), "Food, Travel, FixedExpense or OtherExpense")
	date = fs.String("date", "", "Date, RFC 3339 or YYYY-MM-DD (default now)")
	return desc, price, category, date
}

func expenseInput(desc, price, category, date string) core.ExpenseInput {
	if date == "" {
		date = time.Now().UTC().Format(time.RFC3339)
	}
	return core.ExpenseInput{Description: desc, Price: price, Category: category, Date: date}
}

func (e *env) mutate(ctx context.Context, poolID string, m viewmodel.Mutation, yes bool) error {
	list, pools, err := e.openPool(ctx, poolID, viewmodel.WithConfirmer(e.confirmer(yes)))
	if err != nil {
		return err
	}
	defer pools.Close()
	defer list.Close()
	if err := list.Submit(ctx, m); err != nil {
		if errors.Is(err, viewmodel.ErrDeleteCancelled) {
			fmt.Fprintln(e.stdout, "Cancelled")
			return nil
		}
		return printValidation(e, err)
	}
	return renderExpenses(e.stdout, list)
}

func (e *env) expensesAdd(ctx context.Context, args []string) error {
	fs := e.flags("expenses add")
	poolID := fs.String("pool", "", "Pool id")
	desc, price, category, date := expenseFlags(fs, core.Food)
	if err := fs.Parse(args); err != nil {
		return err
	}
	return e.mutate(ctx, *poolID, viewmodel.Create(expenseInput(*desc, *price, *category, *date)), false)
}

func (e *env) expensesUpdate(ctx context.Context, args []string) error {
	fs := e.flags("expenses update")
	id := fs.String("id", "", "Expense id")
	poolID := fs.String("pool", "", "Pool id")
	desc, price, category, date := expenseFlags(fs, core.Food)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return errors.New("missing -id")
	}
	return e.mutate(ctx, *poolID, viewmodel.Update(*id, expenseInput(*desc, *price, *category, *date)), false)
}

func (e *env) expensesDelete(ctx context.Context, args []string) error {
	fs := e.flags("expenses delete")
	id := fs.String("id", "", "Expense id")
	poolID := fs.String("pool", "", "Pool id")
	yes := fs.Bool("yes", false, "Skip the confirmation prompt")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return errors.New("missing -id")
	}
	return e.mutate(ctx, *poolID, viewmodel.Delete(*id), *yes)
}

func (e *env) fixedCreate(ctx context.Context, args []string) error {
	fs := e.flags("fixed create")
	desc, price, category, date := expenseFlags(fs, core.Fixed)
	if err := fs.Parse(args); err != nil {
		return err
	}
	pools := viewmodel.NewPoolList(e.app.Expenses(), "Primary",
		viewmodel.WithNotifier(e.notifier()), viewmodel.WithLogger(e.logger))
	defer pools.Close()
	if err := pools.CreateFixedExpense(ctx, expenseInput(*desc, *price, *category, *date)); err != nil {
		return printValidation(e, err)
	}
	return renderPools(e.stdout, pools.State().Data)
}

// fixedList shows the fixed-expense tab: the first Primary pool, or a hint
// to create one.
func (e *env) fixedList(ctx context.Context, _ []string) error {
	pools := viewmodel.NewPoolList(e.app.Expenses(), "Primary", viewmodel.WithLogger(e.logger))
	defer pools.Close()
	if err := pools.Load(ctx); err != nil {
		return errors.New(pools.State().Message)
	}
	if pools.Empty() {
		fmt.Fprintln(e.stdout, "No fixed expenses yet, run 'pool fixed create'")
		return nil
	}
	list, err := pools.Open(pools.State().Data[0].ID)
	if err != nil {
		return err
	}
	defer list.Close()
	if err := list.Load(ctx); err != nil {
		return errors.New(list.State().Message)
	}
	return renderExpenses(e.stdout, list)
}

func (e *env) export(ctx context.Context, args []string) error {
	fs := e.flags("export")
	poolID := fs.String("pool", "", "Pool id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *poolID == "" {
		return errors.New("missing -pool")
	}
	res := e.app.Expenses().GetFixedExpenses(ctx, *poolID)
	if !res.Success {
		return result(e, res, "")
	}
	ref, err := e.backend.Exporter.ExportPool(ctx, res.Data)
	if err != nil {
		return fmt.Errorf("export pool %s: %w", *poolID, err)
	}
	fmt.Fprintf(e.stdout, "Exported %s to %s\n", res.Data.Pool.Name, ref)
	return nil
}

// watch re-renders a pool on every change event until interrupted.
// Redelivered events are skipped for a short window.
func (e *env) watch(ctx context.Context, args []string) error {
	fs := e.flags("watch")
	poolID := fs.String("pool", "", "Pool id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if e.backend.AMQP == nil {
		return errors.New("watch needs AMQP_URL")
	}
	list, pools, err := e.openPool(ctx, *poolID)
	if err != nil {
		return err
	}
	defer pools.Close()
	defer list.Close()
	if err := list.Load(ctx); err != nil {
		return errors.New(list.State().Message)
	}
	if err := renderExpenses(e.stdout, list); err != nil {
		return err
	}

	seen := cache.NewLRUCache[struct{}](1024, time.Minute)
	caches := cache.NewManager()
	caches.Register(seen)
	caches.StartCleanup(30 * time.Second)
	defer caches.Stop()

	watcher := services.NewChangeWatcher(e.backend.AMQP, *poolID, func(ctx context.Context, msg *amqp.PoolChangeMessage) error {
		key := msg.Operation + "|" + msg.ExpenseID + "|" + msg.Timestamp.Format(time.RFC3339Nano)
		if _, dup := seen.Get(key); dup {
			return nil
		}
		seen.Set(key, struct{}{})
		if err := list.Load(ctx); err != nil {
			return err
		}
		return renderExpenses(e.stdout, list)
	})
	if err := watcher.Start(ctx); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
	case <-watcher.Done():
	}
	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return watcher.Stop(stopCtx)
}

func printValidation(e *env, err error) error {
	var ve *core.ValidationError
	if errors.As(err, &ve) {
		for field, msg := range ve.Fields {
			fmt.Fprintf(e.stderr, "  %s: %s\n", field, msg)
		}
		return errors.New("invalid input")
	}
	return err
}

func renderPools(w io.Writer, pools []core.ExpensePool) error {
	if len(pools) == 0 {
		fmt.Fprintln(w, "No pools")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tTYPE\tRECEIVED\tBALANCE\tEXPIRY")
	for _, p := range pools {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", p.ID, p.Name, p.Type,
			core.FormatRupees(p.ReceivedAmount), core.FormatRupees(p.Balance), p.Expiry)
	}
	return tw.Flush()
}

func renderExpenses(w io.Writer, list *viewmodel.FixedExpenseList) error {
	st := list.State()
	if !st.IsLoaded() {
		return nil
	}
	amount, _ := list.Balance()
	fmt.Fprintf(w, "%s  Total Balance: %s\n", st.Data.Pool.Name, core.FormatRupees(amount))
	if len(st.Data.Expenses) == 0 {
		fmt.Fprintln(w, "No expenses")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tDESCRIPTION\tCATEGORY\tPRICE")
	for _, x := range st.Data.Expenses {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", x.ID, x.Date.Format(core.DateLayout),
			x.Description, x.Category, core.FormatRupees(x.Price))
	}
	return tw.Flush()
}
