package ui

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"dot-hub/internal/assistant"
	"dot-hub/internal/clipboard"
	"dot-hub/internal/config"
	"dot-hub/internal/export"
	"dot-hub/internal/highlight"
	"dot-hub/internal/jobs"
	"dot-hub/internal/metrics"
	"dot-hub/internal/render"
	"dot-hub/internal/session"
)

const tickInterval = 30 * time.Second

// JobSource keeps the job cache filled.
type JobSource interface {
	Warm(ctx context.Context) (int, error)
	Refresh(ctx context.Context) (int, error)
}

// JobSearcher answers free-text job searches.
type JobSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]jobs.Record, error)
}

type Deps struct {
	Config   config.AppConfig
	Session  *session.Session
	Sender   session.Sender
	Cache    *jobs.Cache
	Jobs     JobSource
	Search   JobSearcher
	Exporter *export.Exporter
	Copier   clipboard.Copier
	Metrics  *metrics.Metrics
	Log      zerolog.Logger
	Rand     interface{ Intn(n int) int }
	Now      func() time.Time
}

type Model struct {
	cfg      config.AppConfig
	pipeline *session.Pipeline
	surface  *render.Transcript
	bridge   *bridge
	cache    *jobs.Cache
	source   JobSource
	searcher JobSearcher
	exporter *export.Exporter
	copier   clipboard.Copier
	log      zerolog.Logger
	now      func() time.Time

	input    textinput.Model
	viewport viewport.Model
	detail   viewport.Model
	wipList  list.Model
	search   textinput.Model
	help     help.Model
	spinner  spinner.Model
	keys     keyMap

	width  int
	height int

	focusCards  bool
	cardIndex   int
	seenScrolls int
	rendered    map[*render.Response]string
	renderNonce int

	searchMode  bool
	searchQuery string
	searchHits  []jobs.Record
	wipCard     *render.Card

	refreshing  bool
	lastRefresh time.Time

	status string
	err    error
}

type turnDoneMsg struct {
	ticket session.Ticket
	resp   *assistant.Response
}
type renderMsg struct {
	resp     *render.Response
	rendered string
	nonce    int
}
type jobsMsg struct {
	n    int
	warm bool
	err  error
}
type searchMsg struct {
	query string
	hits  []jobs.Record
	err   error
}
type exportMsg struct {
	path string
	err  error
}
type copyMsg struct {
	what string
	err  error
}
type tickMsg time.Time
type idleMsg struct{ cleared bool }

type jobItem struct {
	r jobs.Record
}

func (i jobItem) Title() string { return i.r.Number + " | " + i.r.Name }

func (i jobItem) Description() string {
	parts := []string{}
	if i.r.Stage != "" {
		parts = append(parts, i.r.Stage)
	}
	parts = append(parts, "due "+render.DueLabel(i.r.UpdateDue, time.Now()))
	if i.r.WithClient {
		parts = append(parts, "with client")
	}
	return strings.Join(parts, " | ")
}

func (i jobItem) FilterValue() string {
	return strings.ToLower(i.r.Number + " " + i.r.Name + " " + i.r.Update)
}

func NewModel(d Deps) Model {
	now := d.Now
	if now == nil {
		now = time.Now
	}
	cache := d.Cache
	if cache == nil {
		cache = jobs.NewCache()
	}

	b := newBridge()
	surface := render.NewTranscript()
	p := session.Assemble(session.Options{
		Session:   d.Session,
		Sender:    d.Sender,
		Cache:     cache,
		Scheduler: b,
		Navigator: b,
		Display:   b,
		Editor:    b,
		Surface:   surface,
		Metrics:   d.Metrics,
		Log:       d.Log,
		Rand:      d.Rand,
		Now:       now,
	})
	p.Renderer().SetSubmit(b.submit)

	ti := textinput.New()
	ti.Placeholder = "Ask Dot about your jobs..."
	ti.Prompt = "› "
	ti.CharLimit = 1000
	ti.Focus()

	l := list.New([]list.Item{}, list.NewDefaultDelegate(), 40, 20)
	l.Title = "Work in progress"
	l.SetShowFilter(false)
	l.SetFilteringEnabled(false)
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.DisableQuitKeybindings()

	si := textinput.New()
	si.Placeholder = "Search jobs..."
	si.Prompt = "/ "
	si.CharLimit = 256

	sp := spinner.New()
	sp.Spinner = spinner.Points

	h := help.New()
	h.ShowAll = false

	vp := viewport.New(60, 20)
	vp.SetContent(welcomeText)

	return Model{
		cfg:      d.Config,
		pipeline: p,
		surface:  surface,
		bridge:   b,
		cache:    cache,
		source:   d.Jobs,
		searcher: d.Search,
		exporter: d.Exporter,
		copier:   d.Copier,
		log:      d.Log,
		now:      now,

		input:    ti,
		viewport: vp,
		detail:   viewport.New(40, 20),
		wipList:  l,
		search:   si,
		help:     h,
		spinner:  sp,
		keys:     defaultKeys(),

		rendered: make(map[*render.Response]string),
	}
}

const welcomeText = "Hi, I'm Dot. Ask me what's due, what's with the client, or press enter to see what I can do."

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.warmCmd(), m.tickCmd())
}

func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) warmCmd() tea.Cmd {
	if m.source == nil {
		return nil
	}
	src := m.source
	return func() tea.Msg {
		n, err := src.Warm(context.Background())
		return jobsMsg{n: n, warm: true, err: err}
	}
}

func (m *Model) refreshCmd() tea.Cmd {
	if m.source == nil || strings.TrimSpace(m.cfg.APIURL) == "" || m.refreshing {
		return nil
	}
	m.refreshing = true
	src := m.source
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		n, err := src.Refresh(ctx)
		return jobsMsg{n: n, err: err}
	})
}

func (m Model) callCmd(t session.Ticket) tea.Cmd {
	p := m.pipeline
	timeout := m.cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return turnDoneMsg{ticket: t, resp: p.Call(ctx, t)}
	}
}

func (m Model) idleCmd(now time.Time) tea.Cmd {
	p := m.pipeline
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return idleMsg{cleared: p.Idle(ctx, now)}
	}
}

func (m Model) searchCmd(query string) tea.Cmd {
	if m.searcher == nil {
		hits := matchJobs(m.cache.Snapshot(), query)
		return func() tea.Msg { return searchMsg{query: query, hits: hits} }
	}
	s := m.searcher
	return func() tea.Msg {
		hits, err := s.Search(context.Background(), query, 200)
		return searchMsg{query: query, hits: hits, err: err}
	}
}

func (m Model) exportCmd() tea.Cmd {
	if m.exporter == nil {
		return nil
	}
	exp := m.exporter
	id := m.pipeline.Session().Identity()
	meta := export.Meta{SessionID: id.SessionID(), User: id.SenderName(), AccessLevel: id.Level()}
	entries := m.surface.Entries()
	return func() tea.Msg {
		path, err := exp.Export(meta, entries)
		return exportMsg{path: path, err: err}
	}
}

func (m Model) copyCmd(what, text string) tea.Cmd {
	if m.copier == nil {
		return nil
	}
	c := m.copier
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		return copyMsg{what: what, err: c.Copy(ctx, text)}
	}
}

// editCmd is the job-edit hand-off: the channel link (or job number) goes to
// the clipboard so the job can be updated where it lives.
func (m *Model) editCmd(job jobs.Record) tea.Cmd {
	m.status = "Update " + job.Number
	target := strings.TrimSpace(job.ChannelURL)
	what := job.Number + " link"
	if target == "" {
		target, what = job.Number, job.Number
	}
	return m.copyCmd(what, target)
}

func (m Model) renderMessageCmd(resp *render.Response) tea.Cmd {
	md := render.Markdown(resp.Blocks)
	if strings.TrimSpace(md) == "" {
		return nil
	}
	numbers := make([]string, 0, len(resp.Cards))
	for _, c := range resp.Cards {
		numbers = append(numbers, c.Job.Number)
	}
	wrap := m.viewport.Width - 2
	if wrap < 20 {
		wrap = 20
	}
	nonce := m.renderNonce
	return func() tea.Msg {
		out := md
		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(config.DefaultGlamourStyle),
			glamour.WithWordWrap(wrap),
		)
		if err == nil {
			if s, renderErr := r.Render(md); renderErr == nil {
				out = strings.Trim(s, "\n")
			}
		}
		out = highlight.Apply(out, highlight.JobPattern(numbers), func(s string) string { return jobMatchStyle.Render(s) }).Text
		return renderMsg{resp: resp, rendered: out, nonce: nonce}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		cmds = append(cmds, m.rerenderAll())

	case turnDoneMsg:
		out, ok := m.pipeline.Finish(msg.ticket, msg.resp)
		if !ok {
			break
		}
		m.focusCards = false
		cmds = append(cmds, m.renderMessageCmd(out))

	case renderMsg:
		if msg.nonce != m.renderNonce {
			break
		}
		m.rendered[msg.resp] = msg.rendered

	case timerMsg:
		m.bridge.fire(msg.id)

	case jobsMsg:
		if !msg.warm {
			m.refreshing = false
			m.lastRefresh = m.now()
		}
		if msg.err != nil {
			m.err = msg.err
			m.status = "Job refresh failed"
		} else if msg.n > 0 {
			m.err = nil
			m.status = fmt.Sprintf("%d jobs loaded", m.cache.Len())
			m.syncWIP()
		}
		if msg.warm {
			cmds = append(cmds, m.refreshCmd())
		}

	case searchMsg:
		if msg.query != m.searchQuery {
			break
		}
		if msg.err != nil {
			m.err = msg.err
			m.status = "Job search failed"
			break
		}
		m.searchHits = msg.hits
		m.syncWIP()

	case exportMsg:
		if msg.err != nil {
			m.err = msg.err
			m.status = "Export failed: " + msg.err.Error()
		} else {
			m.status = "Exported: " + msg.path
		}

	case copyMsg:
		if msg.err != nil {
			if errors.Is(msg.err, clipboard.ErrToolNotFound) {
				m.status = "Could not copy: clipboard tool not found"
			} else {
				m.status = "Could not copy: " + msg.err.Error()
			}
		} else {
			m.status = "Copied " + msg.what + " to clipboard"
		}

	case tickMsg:
		now := time.Time(msg)
		cmds = append(cmds, m.idleCmd(now), m.tickCmd())
		if m.cfg.Refresh > 0 && now.Sub(m.lastRefresh) >= m.cfg.Refresh {
			cmds = append(cmds, m.refreshCmd())
		}

	case idleMsg:
		if msg.cleared {
			m.status = "Session timed out"
		}

	case spinner.TickMsg:
		if m.bridge.thinking || m.refreshing {
			var spin tea.Cmd
			m.spinner, spin = m.spinner.Update(msg)
			cmds = append(cmds, spin)
		}

	case tea.KeyMsg:
		m.pipeline.Touch()
		if cmd, handled := m.handleKey(msg); handled {
			cmds = append(cmds, cmd)
		} else {
			cmds = append(cmds, m.routeKey(msg))
		}

	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}

	cmds = append(cmds, m.drain())
	m.refreshConversation()
	return m, tea.Batch(cmds...)
}

// handleKey runs the bindings that apply in every view.
func (m *Model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	if key.Matches(msg, m.keys.Quit) {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		m.pipeline.SignOut(ctx)
		return tea.Quit, true
	}
	if m.searchMode {
		return nil, false
	}
	switch {
	case key.Matches(msg, m.keys.Home):
		if m.bridge.view == viewWIP && m.searchQuery != "" {
			m.clearSearch()
			return nil, true
		}
		return m.goHome(), true
	case key.Matches(msg, m.keys.WIP):
		m.bridge.NavigateTo(viewWIP)
		return nil, true
	case key.Matches(msg, m.keys.Tracker):
		m.bridge.NavigateTo(viewTracker)
		return nil, true
	case key.Matches(msg, m.keys.Export):
		return m.exportCmd(), true
	case key.Matches(msg, m.keys.Suggest):
		if s := m.latestSuggestion(); s != nil && !s.Activate() {
			m.status = "Suggestion already asked"
		}
		return nil, true
	}
	return nil, false
}

func (m *Model) routeKey(msg tea.KeyMsg) tea.Cmd {
	switch m.bridge.view {
	case viewWIP:
		return m.wipKey(msg)
	case viewTracker:
		return nil
	}

	switch {
	case key.Matches(msg, m.keys.FocusCards):
		if len(m.surface.Cards()) == 0 {
			m.focusCards = false
			return nil
		}
		m.focusCards = !m.focusCards
		if m.focusCards {
			m.input.Blur()
			m.clampCardIndex()
			return nil
		}
		return m.input.Focus()
	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return nil
	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return nil
	}

	if m.focusCards {
		cards := m.surface.Cards()
		if len(cards) == 0 {
			m.focusCards = false
			return m.input.Focus()
		}
		switch {
		case key.Matches(msg, m.keys.Up):
			m.cardIndex--
		case key.Matches(msg, m.keys.Down):
			m.cardIndex++
		case key.Matches(msg, m.keys.Toggle):
			m.clampCardIndex()
			cards[m.cardIndex].Toggle()
		case key.Matches(msg, m.keys.Update):
			m.clampCardIndex()
			cards[m.cardIndex].Update()
		case key.Matches(msg, m.keys.Copy):
			m.clampCardIndex()
			c := cards[m.cardIndex]
			return m.copyCmd(c.Job.Number, cardClipboardText(c, m.now()))
		}
		m.clampCardIndex()
		return nil
	}

	if key.Matches(msg, m.keys.Submit) {
		text := m.input.Value()
		cmd := m.startTurn(text)
		if cmd != nil {
			m.input.Reset()
		}
		return cmd
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

func (m *Model) wipKey(msg tea.KeyMsg) tea.Cmd {
	if m.searchMode {
		switch msg.String() {
		case "esc":
			m.searchMode = false
			m.search.Blur()
			m.clearSearch()
			return nil
		case "enter":
			m.searchMode = false
			m.search.Blur()
			m.searchQuery = strings.TrimSpace(m.search.Value())
			if m.searchQuery == "" {
				m.clearSearch()
				return nil
			}
			return m.searchCmd(m.searchQuery)
		}
		var cmd tea.Cmd
		m.search, cmd = m.search.Update(msg)
		return cmd
	}

	switch {
	case key.Matches(msg, m.keys.Search):
		m.searchMode = true
		m.search.SetValue(m.searchQuery)
		m.search.CursorEnd()
		return m.search.Focus()
	case key.Matches(msg, m.keys.Toggle):
		if m.wipCard != nil {
			m.wipCard.Toggle()
		}
		return nil
	case key.Matches(msg, m.keys.Update):
		if m.wipCard != nil {
			m.wipCard.Update()
		}
		return nil
	case key.Matches(msg, m.keys.Copy):
		if m.wipCard != nil {
			return m.copyCmd(m.wipCard.Job.Number, cardClipboardText(m.wipCard, m.now()))
		}
		return nil
	}

	var cmd tea.Cmd
	m.wipList, cmd = m.wipList.Update(msg)
	m.syncDetail()
	return cmd
}

// startTurn submits text as a new question. It returns nil when a turn is
// already outstanding.
func (m *Model) startTurn(text string) tea.Cmd {
	t, err := m.pipeline.Begin(text)
	if err != nil {
		if errors.Is(err, session.ErrTurnInFlight) {
			m.status = "Dot is still thinking"
		}
		return nil
	}
	if m.bridge.view != viewHome {
		m.bridge.NavigateTo(viewHome)
	}
	m.status = ""
	m.focusCards = false
	return tea.Batch(m.callCmd(t), m.spinner.Tick)
}

func (m *Model) goHome() tea.Cmd {
	m.pipeline.Home()
	m.bridge.view = viewHome
	m.bridge.navigated = false
	m.focusCards = false
	m.cardIndex = 0
	m.renderNonce++
	m.rendered = make(map[*render.Response]string)
	m.status = ""
	m.viewport.SetContent(welcomeText)
	return m.input.Focus()
}

// drain turns the bridge's queued work into commands. Submitting a suggestion
// can queue more timers, so it loops until the bridge is empty.
func (m *Model) drain() tea.Cmd {
	var cmds []tea.Cmd
	for i := 0; i < 4; i++ {
		queued, edits, submits := m.bridge.take()
		if len(queued)+len(edits)+len(submits) == 0 {
			break
		}
		cmds = append(cmds, queued...)
		for _, job := range edits {
			cmds = append(cmds, m.editCmd(job))
		}
		for _, text := range submits {
			cmds = append(cmds, m.startTurn(text))
		}
	}
	if m.bridge.navigated {
		m.bridge.navigated = false
		m.enterView()
	}
	return tea.Batch(cmds...)
}

func (m *Model) enterView() {
	switch m.bridge.view {
	case viewWIP:
		m.input.Blur()
		m.syncWIP()
	case viewTracker:
		m.input.Blur()
	default:
		if !m.focusCards {
			m.input.Focus()
		}
	}
}

func (m *Model) clearSearch() {
	m.searchQuery = ""
	m.searchHits = nil
	m.search.SetValue("")
	m.syncWIP()
}

func (m *Model) access() jobs.Access {
	return m.pipeline.Session().Identity().Access()
}

// wipJobs is the WIP list: access filter, then the view's client, then search.
func (m *Model) wipJobs() []jobs.Record {
	if m.searchQuery != "" {
		return jobs.WIPFilter(m.searchHits, m.access(), m.bridge.wipClient)
	}
	return jobs.WIPFilter(m.cache.Snapshot(), m.access(), m.bridge.wipClient)
}

func (m *Model) syncWIP() {
	records := m.wipJobs()
	items := make([]list.Item, 0, len(records))
	for _, r := range records {
		items = append(items, jobItem{r: r})
	}
	m.wipList.SetItems(items)
	m.wipList.Title = wipTitle(m.bridge.wipClient, m.searchQuery)
	if len(items) > 0 && m.wipList.Index() >= len(items) {
		m.wipList.Select(0)
	}
	m.syncDetail()
}

func wipTitle(client, query string) string {
	title := "Work in progress"
	if c := strings.TrimSpace(client); c != "" && !strings.EqualFold(c, "all") {
		title += " · " + strings.ToUpper(c)
	}
	if query != "" {
		title += " · \"" + query + "\""
	}
	return title
}

func (m *Model) syncDetail() {
	item, ok := m.wipList.SelectedItem().(jobItem)
	if !ok {
		m.wipCard = nil
		m.detail.SetContent("No jobs to show.")
		return
	}
	if m.wipCard == nil || m.wipCard.Job.Key() != item.r.Key() {
		m.wipCard = render.NewCard(item.r, m.bridge)
		m.wipCard.Toggle()
	}
}

func (m *Model) latestSuggestion() *render.Suggestion {
	last := m.surface.Last()
	if last == nil {
		return nil
	}
	return last.Suggestion
}

func (m *Model) clampCardIndex() {
	n := len(m.surface.Cards())
	if m.cardIndex >= n {
		m.cardIndex = n - 1
	}
	if m.cardIndex < 0 {
		m.cardIndex = 0
	}
}

func (m *Model) rerenderAll() tea.Cmd {
	m.renderNonce++
	m.rendered = make(map[*render.Response]string)
	var cmds []tea.Cmd
	for _, e := range m.surface.Entries() {
		if e.Response != nil {
			cmds = append(cmds, m.renderMessageCmd(e.Response))
		}
	}
	return tea.Batch(cmds...)
}

// refreshConversation redraws the conversation and follows the surface's
// scroll requests.
func (m *Model) refreshConversation() {
	entries := m.surface.Entries()
	if len(entries) == 0 && !m.bridge.thinking {
		m.viewport.SetContent(welcomeText)
		return
	}
	m.viewport.SetContent(m.conversationContent(entries))
	if s := m.surface.Scrolls(); s != m.seenScrolls {
		m.seenScrolls = s
		m.viewport.GotoBottom()
	}
}

func (m Model) conversationContent(entries []render.Entry) string {
	width := m.viewport.Width
	if width < 24 {
		width = 24
	}
	now := m.now()
	textStyle := lipgloss.NewStyle().Width(width)

	var blocks []string
	cardIdx := 0
	for _, e := range entries {
		if e.IsQuestion() {
			blocks = append(blocks, questionStyle.Render("You")+"\n"+textStyle.Render(e.Question))
			continue
		}
		resp := e.Response
		parts := []string{dotStyle.Render("Dot")}
		if body, ok := m.rendered[resp]; ok {
			parts = append(parts, body)
		} else if plain := render.Plain(resp.Blocks); plain != "" {
			parts = append(parts, textStyle.Render(plain))
		}
		for _, c := range resp.Cards {
			parts = append(parts, c.View(width, now, m.focusCards && cardIdx == m.cardIndex))
			cardIdx++
		}
		if s := resp.Suggestion; s != nil {
			if s.Used() {
				parts = append(parts, usedSuggestionStyle.Render("→ "+s.Text))
			} else {
				parts = append(parts, suggestionStyle.Render("→ "+s.Text+"  (ctrl+p)"))
			}
		}
		blocks = append(blocks, strings.Join(parts, "\n"))
	}
	if m.bridge.thinking {
		phrase := m.bridge.phrase
		if phrase == "" {
			phrase = "..."
		}
		blocks = append(blocks, dotStyle.Render("Dot")+"\n"+thinkingStyle.Render(m.spinner.View()+" "+phrase))
	}
	return strings.Join(blocks, "\n\n")
}

// matchJobs is the in-memory search used when no store is attached.
func matchJobs(records []jobs.Record, query string) []jobs.Record {
	terms := strings.Fields(strings.ToLower(query))
	var out []jobs.Record
	for _, r := range records {
		hay := jobItem{r: r}.FilterValue() + " " + strings.ToLower(r.Description)
		ok := true
		for _, t := range terms {
			if !strings.Contains(hay, t) {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, r)
		}
	}
	return out
}

func cardClipboardText(c *render.Card, now time.Time) string {
	lines := []string{c.Title()}
	if s := c.Summary(now); s != "" {
		lines = append(lines, s)
	}
	lines = append(lines, c.Latest())
	return strings.Join(lines, "\n")
}

// trackerContent lists each visible client with its job counts. The spend
// tracker itself lives elsewhere; this is the pre-filtered landing view.
func trackerContent(records []jobs.Record, access jobs.Access, selected string, now time.Time) string {
	type row struct {
		jobs, withClient, overdue int
	}
	rows := map[string]*row{}
	var order []string
	for _, r := range access.Filter(records) {
		code := r.Client()
		if code == "" {
			continue
		}
		rw, ok := rows[code]
		if !ok {
			rw = &row{}
			rows[code] = rw
			order = append(order, code)
		}
		rw.jobs++
		if r.WithClient {
			rw.withClient++
		}
		if render.DueLabel(r.UpdateDue, now) == "Overdue" {
			rw.overdue++
		}
	}
	if len(order) == 0 {
		return "No clients to track yet."
	}

	selected = strings.ToUpper(strings.TrimSpace(selected))
	var b strings.Builder
	b.WriteString(fmt.Sprintf("  %-8s %5s %12s %8s\n", "CLIENT", "JOBS", "WITH CLIENT", "OVERDUE"))
	sort.Strings(order)
	for _, code := range order {
		rw := rows[code]
		marker := "  "
		if code == selected {
			marker = "> "
		}
		b.WriteString(fmt.Sprintf("%s%-8s %5d %12d %8d\n", marker, code, rw.jobs, rw.withClient, rw.overdue))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m *Model) resize() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	bodyHeight := m.height - 4
	if bodyHeight < 8 {
		bodyHeight = 8
	}

	m.viewport.Width = m.width - 4
	m.viewport.Height = bodyHeight - 2
	m.input.Width = m.width - 6

	left, right := m.paneWidths()
	m.wipList.SetSize(left-2, bodyHeight-2)
	m.detail.Width = right - 2
	m.detail.Height = bodyHeight - 2
}

func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Starting..."
	}
	bodyHeight := m.height - 4
	if bodyHeight < 8 {
		bodyHeight = 8
	}

	var body, footer string
	switch m.bridge.view {
	case viewWIP:
		left, right := m.paneWidths()
		detail := m.detail
		if m.wipCard != nil {
			detail.SetContent(m.wipCard.View(right-4, m.now(), true))
		}
		leftPane := panelStyle(true).Width(left).Height(bodyHeight).Render(m.wipList.View())
		rightPane := panelStyle(false).Width(right).Height(bodyHeight).Render(detail.View())
		body = lipgloss.JoinHorizontal(lipgloss.Top, leftPane, rightPane)
		if m.searchMode {
			footer = m.search.View()
		} else if m.searchQuery != "" {
			footer = "search: " + m.searchQuery
		}
	case viewTracker:
		content := trackerContent(m.cache.Snapshot(), m.access(), m.bridge.trackerClient, m.now())
		body = panelStyle(true).Width(m.width - 2).Height(bodyHeight).Render(content)
	default:
		body = panelStyle(!m.focusCards).Width(m.width - 2).Height(bodyHeight).Render(m.viewport.View())
		footer = m.input.View()
		if m.pipeline.Busy() {
			footer = thinkingStyle.Render("Dot is thinking...")
		}
	}

	helpView := m.help.View(m.keys)
	if footer != "" {
		helpView = footer + "\n" + helpView
	}
	return lipgloss.JoinVertical(lipgloss.Left, m.statusLine(), body, helpView)
}

func (m Model) statusLine() string {
	id := m.pipeline.Session().Identity()
	status := fmt.Sprintf("view=%s  user=%s  access=%s  jobs=%d",
		m.bridge.view, id.SenderName(), id.Level(), m.cache.Len())
	if c := m.bridge.wipClient; m.bridge.view == viewWIP && c != "" {
		status += "  client=" + c
	}
	if m.refreshing {
		status += "  " + m.spinner.View() + " refreshing"
	}
	if m.focusCards {
		status += "  [cards]"
	}
	if strings.TrimSpace(m.status) != "" {
		status += "  " + shorten(strings.TrimSpace(m.status), 80)
	}
	if m.err != nil {
		status += "  err=" + shorten(m.err.Error(), 60)
	}
	return statusStyle.Render(status)
}

func (m *Model) paneWidths() (int, int) {
	left := m.width / 3
	if left < 32 {
		left = 32
	}
	if left > m.width-32 {
		left = m.width - 32
	}
	if left < 20 {
		left = 20
	}
	right := m.width - left - 1
	if right < 20 {
		right = 20
	}
	return left, right
}

func shorten(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}

var (
	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("24")).
			Padding(0, 1)
	jobMatchStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("16")).
			Background(lipgloss.Color("220"))
	questionStyle       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("244"))
	dotStyle            = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	thinkingStyle       = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("244"))
	suggestionStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Underline(true)
	usedSuggestionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

func panelStyle(active bool) lipgloss.Style {
	border := lipgloss.NormalBorder()
	if active {
		return lipgloss.NewStyle().
			Border(border, true).
			BorderForeground(lipgloss.Color("39")).
			Padding(0, 1)
	}
	return lipgloss.NewStyle().
		Border(border, true).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)
}
