package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/ashureev/agentdesk/internal/domain"
	"github.com/ashureev/agentdesk/internal/notify"
	"github.com/ashureev/agentdesk/internal/view"
)

// toasts prints successful outcomes to stderr and keeps the last failure so
// run can report it in place of the raw error.
type toasts struct {
	w     io.Writer
	quiet bool

	mu   sync.Mutex
	last *notify.Toast
}

func (t *toasts) Notify(kind notify.Kind, title, description string) {
	if kind == notify.KindError {
		t.mu.Lock()
		t.last = &notify.Toast{Kind: kind, Title: title, Description: description}
		t.mu.Unlock()
		return
	}
	if t.quiet {
		return
	}
	if description != "" {
		fmt.Fprintf(t.w, "%s: %s\n", title, description)
		return
	}
	fmt.Fprintln(t.w, title)
}

func (t *toasts) failure() (notify.Toast, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.last == nil {
		return notify.Toast{}, false
	}
	return *t.last, true
}

// parseArgs parses flags that may appear before or after positional arguments.
func parseArgs(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		args = fs.Args()
		if len(args) == 0 {
			return positional, nil
		}
		positional = append(positional, args[0])
		args = args[1:]
	}
}

func newFlagSet(a *app, name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

func (a *app) user() (domain.Identity, error) {
	id, ok := a.store.Identity()
	if !ok || id.CompanyID == "" {
		return domain.Identity{}, view.ErrNotLoggedIn
	}
	return id, nil
}

func cmdLogin(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "login")
	email := fs.String("email", os.Getenv("AGENTDESK_EMAIL"), "Account email")
	password := fs.String("password", "", "Account password (default $AGENTDESK_PASSWORD)")
	if _, err := parseArgs(fs, args); err != nil {
		return err
	}
	if *password == "" {
		*password = os.Getenv("AGENTDESK_PASSWORD")
	}

	resp, err := a.session.Login(ctx, domain.LoginRequest{Email: *email, Password: *password})
	if err != nil {
		return err
	}
	return a.printMessage(resp.User, fmt.Sprintf("Logged in as %s (%s)", resp.User.Name, resp.User.Email))
}

func cmdLogout(ctx context.Context, a *app, _ []string) error {
	if err := a.session.Logout(ctx); err != nil {
		fmt.Fprintln(a.stderr, "warning:", view.Message(err))
	}
	return a.printMessage(map[string]bool{"logged_out": true}, "Logged out")
}

func cmdRefresh(ctx context.Context, a *app, _ []string) error {
	pair, err := a.session.RefreshToken(ctx)
	if err != nil {
		return err
	}
	return a.printMessage(map[string]bool{"refreshed": pair.AccessToken != ""}, "Session refreshed")
}

func cmdWhoAmI(_ context.Context, a *app, _ []string) error {
	id, err := a.user()
	if err != nil {
		return err
	}
	return a.print(id, table{
		header: []string{"USER", "NAME", "EMAIL", "ROLE", "COMPANY"},
		rows:   [][]string{{id.UserID, id.Name, id.Email, id.Role, id.CompanyID}},
		ids:    []string{id.UserID},
	})
}

func cmdAgents(ctx context.Context, a *app, _ []string) error {
	catalog := view.NewCatalog(a.session, a.toasts)
	if err := catalog.Load(ctx); err != nil {
		return err
	}
	agents := catalog.Agents()
	t := table{header: []string{"ID", "NAME", "TITLE", "DESCRIPTION"}, empty: "No agents available"}
	for _, ag := range agents {
		t.rows = append(t.rows, []string{ag.ID, ag.Name, ag.Title, ag.Description})
		t.ids = append(t.ids, ag.ID)
	}
	return a.print(agents, t)
}

func cmdPurchased(ctx context.Context, a *app, _ []string) error {
	user, err := a.user()
	if err != nil {
		return err
	}
	agents, _, err := view.PurchasedAgents(ctx, a.session, a.toasts, user)
	if err != nil {
		return err
	}
	t := table{header: []string{"ID", "NAME", "AGENT", "PLAN", "PERIOD"}, empty: "No purchased agents"}
	for _, p := range agents {
		period := ""
		if p.Period > 0 {
			period = strconv.Itoa(p.Period) + "d"
		}
		t.rows = append(t.rows, []string{p.ID, p.Name, p.AgentID, p.Plan, period})
		t.ids = append(t.ids, p.ID)
	}
	return a.print(agents, t)
}

func cmdPurchase(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "purchase")
	planName := fs.String("plan", domain.PlanFree.Name, "Plan: free or enterprise")
	period := fs.Int("period", 0, "Enterprise period in days: 30, 60 or 90")
	guest := fs.Bool("guest", false, "Purchase without logging in")
	company := fs.String("company", "", "Company id for a guest purchase")
	pos, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if len(pos) != 1 {
		return errors.New("usage: agentctl purchase <agent-id> [-plan free|enterprise] [-period days]")
	}
	plan, ok := domain.LookupPlan(*planName)
	if !ok {
		return fmt.Errorf("unknown plan %q", *planName)
	}
	if *period != 0 && plan.Name != domain.PlanEnterprise.Name {
		return fmt.Errorf("plan %s has a fixed %d day period", plan.Name, plan.DefaultPeriod)
	}
	if *guest {
		return a.purchaseAsGuest(ctx, *company, pos[0], plan, *period)
	}
	user, err := a.user()
	if err != nil {
		return err
	}

	catalog := view.NewCatalog(a.session, a.toasts)
	if err := catalog.Load(ctx); err != nil {
		return err
	}
	agent, ok := catalog.Find(pos[0])
	if !ok {
		return fmt.Errorf("agent %s is not available for purchase", pos[0])
	}

	drawer := view.NewPurchaseDrawer(a.session, a.toasts, user, agent)
	if *period != 0 {
		if err := drawer.SelectPeriod(*period); err != nil {
			return err
		}
	}
	if _, err := drawer.Purchase(ctx, plan); err != nil {
		return err
	}
	return a.printMessage(drawer.State(), "Manage it with: agentctl purchased")
}

// purchaseAsGuest buys an agent for company without sending credentials.
func (a *app) purchaseAsGuest(ctx context.Context, companyID, agentID string, plan domain.Plan, period int) error {
	if companyID == "" {
		return errors.New("-guest needs -company")
	}
	purchased, err := a.session.PurchaseAgent(ctx, domain.NewPurchaseRequest(companyID, agentID, plan, period))
	if err != nil {
		return err
	}
	return a.printMessage(purchased, fmt.Sprintf("Purchased agent %s for company %s (%s)", agentID, companyID, purchased.ID))
}

// loadQueries returns the loaded query table of a purchased agent.
func (a *app) loadQueries(ctx context.Context, purchasedAgentID, agentID string) (*view.QueryTable, error) {
	user, err := a.user()
	if err != nil {
		return nil, err
	}
	qt := view.NewQueryTable(a.session, a.toasts, view.QueryTarget{
		PurchasedAgentID: purchasedAgentID,
		CompanyID:        user.CompanyID,
		AgentID:          agentID,
	})
	if err := qt.Load(ctx); err != nil {
		return nil, err
	}
	return qt, nil
}

func (a *app) printQueries(state view.QueryTableState) error {
	t := table{
		header: []string{"ID", "QUERY"},
		empty:  fmt.Sprintf("No queries yet. Add up to %d sample queries with: agentctl query-add", state.Capacity),
	}
	for _, q := range state.Queries {
		t.rows = append(t.rows, []string{q.ID, q.Text})
		t.ids = append(t.ids, q.ID)
	}
	return a.print(state, t)
}

func cmdQueries(ctx context.Context, a *app, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: agentctl queries <purchased-agent-id>")
	}
	qt, err := a.loadQueries(ctx, args[0], "")
	if err != nil {
		return err
	}
	return a.printQueries(qt.State())
}

func cmdQueryAdd(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "query-add")
	agentID := fs.String("agent", "", "Catalog agent id")
	pos, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if len(pos) < 2 {
		return errors.New("usage: agentctl query-add <purchased-agent-id> [-agent id] <text>")
	}
	qt, err := a.loadQueries(ctx, pos[0], *agentID)
	if err != nil {
		return err
	}
	added, err := qt.Add(ctx, strings.Join(pos[1:], " "))
	if err != nil {
		return err
	}
	if !added {
		return errors.New("query text is required")
	}
	return a.printQueries(qt.State())
}

func cmdQueryEdit(ctx context.Context, a *app, args []string) error {
	if len(args) < 3 {
		return errors.New("usage: agentctl query-edit <purchased-agent-id> <query-id> <text>")
	}
	qt, err := a.loadQueries(ctx, args[0], "")
	if err != nil {
		return err
	}
	if err := qt.BeginEdit(args[1]); err != nil {
		return fmt.Errorf("query %s: %w", args[1], err)
	}
	qt.SetDraft(strings.Join(args[2:], " "))
	if err := qt.SaveEdit(ctx); err != nil {
		return err
	}
	return a.printQueries(qt.State())
}

func cmdQueryRemove(ctx context.Context, a *app, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: agentctl query-rm <purchased-agent-id> <query-id>")
	}
	qt, err := a.loadQueries(ctx, args[0], "")
	if err != nil {
		return err
	}
	if err := qt.Delete(ctx, args[1]); err != nil {
		return err
	}
	return a.printQueries(qt.State())
}

func cmdUpload(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet(a, "upload")
	consent := fs.Bool("consent", false, "Confirm you have the right to share the document")
	pos, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if len(pos) != 1 {
		return errors.New("usage: agentctl upload <file.pdf> -consent")
	}
	user, err := a.user()
	if err != nil {
		return err
	}

	content, err := os.ReadFile(pos[0])
	if err != nil {
		return err
	}
	dialog := view.NewUploadDialog(a.session, a.toasts, user)
	if err := dialog.Select(domain.Document{Filename: filepath.Base(pos[0]), Content: content}); err != nil {
		return err
	}
	if err := dialog.Preview(); err != nil {
		return err
	}
	dialog.SetConsent(*consent)
	res, err := dialog.Submit(ctx)
	if errors.Is(err, view.ErrConsentRequired) {
		return errors.New("pass -consent to confirm you have the right to share this document")
	}
	if err != nil {
		return err
	}
	return a.printMessage(res, res.DocumentID)
}

func cmdCompanies(ctx context.Context, a *app, _ []string) error {
	companies, err := a.session.GetAllCompanies(ctx)
	if err != nil {
		return err
	}
	t := table{header: []string{"ID", "NAME", "EMAIL", "LOCATION", "INDUSTRY"}, empty: "No companies"}
	for _, c := range companies {
		t.rows = append(t.rows, []string{c.ID, c.Name, c.Email, c.Location, c.Industry})
		t.ids = append(t.ids, c.ID)
	}
	return a.print(companies, t)
}
