package deckcmder

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	bubbletea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/papercomputeco/memdeck/pkg/deck"
	"github.com/papercomputeco/memdeck/pkg/memory"
	"github.com/papercomputeco/memdeck/pkg/mutation"
	"github.com/papercomputeco/memdeck/pkg/utils"
)

func init() {
	// Force TrueColor profile to fix lipgloss color detection issue
	// See: https://github.com/charmbracelet/lipgloss/issues/439
	renderer := lipgloss.NewRenderer(os.Stdout, termenv.WithProfile(termenv.TrueColor))
	renderer.SetColorProfile(termenv.TrueColor)
	lipgloss.SetDefaultRenderer(renderer)
}

type deckMode int

const (
	modeBrowse deckMode = iota
	modeSearch
	modeAdd
	modeConfirmDelete
)

const (
	defaultWidth      = 80
	defaultListHeight = 12
	ageColumnWidth    = 14
	userColumnWidth   = 14

	// chromeHeight is every line View renders besides the record rows.
	chromeHeight = 16
)

type deckModel struct {
	ctx      context.Context
	deck     *deck.Deck
	snapshot deck.Snapshot
	overview deck.Overview
	spec     deck.Spec
	owner    string

	// live is set once the subscription delivered a snapshot; the initial
	// read from Init is ignored after that.
	live bool

	mode      deckMode
	cursor    int
	width     int
	height    int
	input     textinput.Model
	before    deck.Spec
	pending   memory.Record
	spinner   spinner.Model
	spinning  bool
	notice    string
	noticeErr bool
	keys      deckKeyMap
	help      help.Model
	now       func() time.Time
}

var (
	deckTitleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	deckMutedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	deckAccentStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("215"))
	deckSectionStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	deckDividerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("237"))
	deckMetricLabel    = lipgloss.NewStyle().Foreground(lipgloss.Color("246")).Bold(true)
	deckMetricValue    = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	deckHighlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("235")).Background(lipgloss.Color("214")).Bold(true)
	deckUserStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("111"))
	deckErrorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	deckOKStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("70"))
	deckWarnStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

type deckKeyMap struct {
	Up      key.Binding
	Down    key.Binding
	Search  key.Binding
	User    key.Binding
	Tag     key.Binding
	Sort    key.Binding
	Order   key.Binding
	Reset   key.Binding
	Refresh key.Binding
	Add     key.Binding
	Delete  key.Binding
	Help    key.Binding
	Quit    key.Binding
}

func (k deckKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Down, k.Up, k.Search, k.User, k.Tag, k.Sort, k.Add, k.Delete, k.Help, k.Quit}
}

func (k deckKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Down, k.Up, k.Refresh},
		{k.Search, k.User, k.Tag, k.Reset},
		{k.Sort, k.Order},
		{k.Add, k.Delete, k.Help, k.Quit},
	}
}

func defaultKeyMap() deckKeyMap {
	return deckKeyMap{
		Up:      key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k", "up")),
		Down:    key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j", "down")),
		Search:  key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		User:    key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "user")),
		Tag:     key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "tag")),
		Sort:    key.NewBinding(key.WithKeys("1", "2", "3"), key.WithHelp("1-3", "sort")),
		Order:   key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "order")),
		Reset:   key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "reset")),
		Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		Add:     key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add")),
		Delete:  key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		Help:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// snapshotMsg carries a snapshot pushed by the collection subscription.
type snapshotMsg deck.Snapshot

// initialSnapshotMsg carries the snapshot read when the program starts.
type initialSnapshotMsg deck.Snapshot

type mutationDoneMsg struct {
	op     mutation.Op
	record memory.Record
	err    error
}

// runDeckTUI runs the dashboard until the user quits and returns the filters and sort it
// was left on.
func runDeckTUI(ctx context.Context, d *deck.Deck, spec deck.Spec, owner string) (deck.Spec, error) {
	model := newDeckModel(ctx, d, spec, owner)

	program := bubbletea.NewProgram(model,
		bubbletea.WithContext(ctx),
		bubbletea.WithAltScreen(),
	)

	_, unsubscribe := d.SubscribeToCollection(func(snapshot deck.Snapshot) {
		program.Send(snapshotMsg(snapshot))
	})
	defer unsubscribe()

	final, err := program.Run()
	if err != nil {
		return spec, err
	}
	if m, ok := final.(deckModel); ok {
		return m.spec, nil
	}
	return spec, nil
}

func newDeckModel(ctx context.Context, d *deck.Deck, spec deck.Spec, owner string) deckModel {
	m := deckModel{
		ctx:      ctx,
		deck:     d,
		snapshot: deck.Snapshot{Loading: true},
		spec:     spec,
		owner:    owner,
		mode:     modeBrowse,
		input:    textinput.New(),
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(deckAccentStyle)),
		spinning: true,
		keys:     defaultKeyMap(),
		help:     help.New(),
		now:      time.Now,
	}
	return m.rebuild()
}

func (m deckModel) Init() bubbletea.Cmd {
	d := m.deck
	return bubbletea.Batch(m.spinner.Tick, func() bubbletea.Msg {
		return initialSnapshotMsg(d.Snapshot())
	})
}

func (m deckModel) Update(msg bubbletea.Msg) (bubbletea.Model, bubbletea.Cmd) {
	switch msg := msg.(type) {
	case bubbletea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil
	case initialSnapshotMsg:
		if m.live {
			return m, nil
		}
		m.snapshot = deck.Snapshot(msg)
		m = m.rebuild()
		return m.withSpinner()
	case snapshotMsg:
		m.live = true
		m.snapshot = deck.Snapshot(msg)
		m = m.rebuild()
		return m.withSpinner()
	case spinner.TickMsg:
		if !m.snapshot.Loading {
			m.spinning = false
			return m, nil
		}
		var cmd bubbletea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case mutationDoneMsg:
		return m.settle(msg), nil
	case bubbletea.KeyMsg:
		switch m.mode {
		case modeSearch:
			return m.handleSearchKey(msg)
		case modeAdd:
			return m.handleAddKey(msg)
		case modeConfirmDelete:
			return m.handleConfirmKey(msg)
		default:
			return m.handleKey(msg)
		}
	}

	return m, nil
}

func (m deckModel) handleKey(msg bubbletea.KeyMsg) (bubbletea.Model, bubbletea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, bubbletea.Quit
	case "j", "down":
		return m.moveCursor(1), nil
	case "k", "up":
		return m.moveCursor(-1), nil
	case "/":
		m.before = m.spec
		m.mode = modeSearch
		return m, m.openInput("/ ", "search memories", m.spec.Search)
	case "u":
		m.spec.User = cycle(m.overview.Users, m.spec.User)
		m.cursor = 0
		return m.rebuild(), nil
	case "t":
		m.spec.Tag = cycle(m.overview.Tags, m.spec.Tag)
		m.cursor = 0
		return m.rebuild(), nil
	case "1", "2", "3":
		m.spec = m.spec.ToggleSort(deck.SortFields[int(msg.String()[0]-'1')])
		return m.rebuild(), nil
	case "o":
		m.spec.SortOrder = m.spec.SortOrder.Flip()
		return m.rebuild(), nil
	case "x":
		m.spec = m.spec.ResetFilters()
		m.cursor = 0
		return m.rebuild(), nil
	case "r":
		m.notice, m.noticeErr = "", false
		return m, refreshCmd(m.deck)
	case "a":
		m.mode = modeAdd
		return m, m.openInput("add> ", "memory text for "+m.owner, "")
	case "d":
		record, ok := m.selected()
		if !ok {
			return m, nil
		}
		m.pending = record
		m.mode = modeConfirmDelete
		return m, nil
	case "?":
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	}

	return m, nil
}

// handleSearchKey filters live as the user types. Esc restores the search the
// prompt was opened with.
func (m deckModel) handleSearchKey(msg bubbletea.KeyMsg) (bubbletea.Model, bubbletea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, bubbletea.Quit
	case "enter":
		m.mode = modeBrowse
		m.input.Blur()
		return m, nil
	case "esc":
		m.mode = modeBrowse
		m.input.Blur()
		m.spec = m.before
		return m.rebuild(), nil
	}

	var cmd bubbletea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.spec.Search = m.input.Value()
	m.cursor = 0
	return m.rebuild(), cmd
}

func (m deckModel) handleAddKey(msg bubbletea.KeyMsg) (bubbletea.Model, bubbletea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, bubbletea.Quit
	case "esc":
		m.mode = modeBrowse
		m.input.Blur()
		return m, nil
	case "enter":
		m.mode = modeBrowse
		m.input.Blur()
		text := m.input.Value()
		if strings.TrimSpace(text) == "" {
			m.notice, m.noticeErr = memory.UserMessage(memory.NewValidationError("text", "must not be empty")), true
			return m, nil
		}
		m.notice, m.noticeErr = "Adding memory...", false
		return m, addCmd(m.ctx, m.deck, text, m.owner)
	}

	var cmd bubbletea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handleConfirmKey deletes only on an explicit yes.
func (m deckModel) handleConfirmKey(msg bubbletea.KeyMsg) (bubbletea.Model, bubbletea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, bubbletea.Quit
	case "y", "Y":
		m.mode = modeBrowse
		m.notice, m.noticeErr = "Deleting memory...", false
		return m, deleteCmd(m.ctx, m.deck, m.pending)
	case "n", "N", "esc", "q":
		m.mode = modeBrowse
		m.notice, m.noticeErr = memory.UserMessage(memory.ErrDeleteDeclined), false
		m.pending = memory.Record{}
		return m, nil
	}
	return m, nil
}

func (m deckModel) settle(msg mutationDoneMsg) deckModel {
	if msg.err != nil {
		m.notice, m.noticeErr = memory.UserMessage(msg.err), true
		return m
	}

	m.noticeErr = false
	switch msg.op {
	case mutation.OpAdd:
		m.notice = fmt.Sprintf("Added memory for %s.", msg.record.UserID)
	case mutation.OpDelete:
		m.notice = "Memory deleted."
		m.pending = memory.Record{}
	}
	return m
}

func (m *deckModel) openInput(prompt, placeholder, value string) bubbletea.Cmd {
	m.input = textinput.New()
	m.input.Prompt = prompt
	m.input.Placeholder = placeholder
	m.input.SetValue(value)
	m.input.CursorEnd()
	return m.input.Focus()
}

func (m deckModel) withSpinner() (deckModel, bubbletea.Cmd) {
	if !m.snapshot.Loading || m.spinning {
		return m, nil
	}
	m.spinning = true
	return m, m.spinner.Tick
}

func (m deckModel) rebuild() deckModel {
	m.overview = deck.Build(m.snapshot, m.spec)
	m.cursor = clamp(m.cursor, len(m.overview.Records)-1)
	return m
}

func (m deckModel) moveCursor(delta int) deckModel {
	if len(m.overview.Records) == 0 {
		return m
	}
	m.cursor = clamp(m.cursor+delta, len(m.overview.Records)-1)
	return m
}

func (m deckModel) selected() (memory.Record, bool) {
	if m.cursor < 0 || m.cursor >= len(m.overview.Records) {
		return memory.Record{}, false
	}
	return m.overview.Records[m.cursor], true
}

func (m deckModel) View() string {
	summary := deck.Summarize(m.snapshot.Records, 0)

	headerLeft := deckTitleStyle.Render("memdeck")
	headerRight := deckMutedStyle.Render(fmt.Sprintf("showing %d of %d", m.overview.Showing, m.overview.Total))

	lines := make([]string, 0, chromeHeight+defaultListHeight)
	lines = append(lines,
		renderHeaderLine(m.width, headerLeft, headerRight),
		renderRule(m.width),
		m.viewMetrics(summary),
		m.viewFilters(),
		"",
		m.viewStatus(),
		"",
		m.viewRecordList(),
		"",
		m.viewDetail(),
		"",
		m.viewFooter(),
	)

	return strings.Join(lines, "\n")
}

func (m deckModel) viewMetrics(summary deck.Summary) string {
	return fmt.Sprintf("%s %s   %s %s   %s %s",
		deckMetricLabel.Render("MEMORIES"),
		deckMetricValue.Render(fmt.Sprint(summary.Total)),
		deckMetricLabel.Render("USERS"),
		deckMetricValue.Render(fmt.Sprint(summary.ActiveUsers)),
		deckMetricLabel.Render("TAGS"),
		deckMetricValue.Render(fmt.Sprint(len(m.overview.Tags))),
	)
}

func (m deckModel) viewFilters() string {
	orNone := func(v string) string {
		if v == "" {
			return "-"
		}
		return v
	}
	arrow := "↓"
	if m.spec.SortOrder == deck.OrderAsc {
		arrow = "↑"
	}
	return deckMutedStyle.Render(fmt.Sprintf("search: %s  user: %s  tag: %s  sort: %s %s",
		orNone(m.spec.Search),
		orNone(m.spec.User),
		orNone(m.spec.Tag),
		m.spec.SortField,
		arrow,
	))
}

// viewStatus shows loading, then a load error, then the last action result.
func (m deckModel) viewStatus() string {
	switch {
	case m.snapshot.Loading:
		return m.spinner.View() + " " + deckMutedStyle.Render("Loading memories...")
	case m.snapshot.Err != nil:
		return deckErrorStyle.Render(memory.UserMessage(m.snapshot.Err)) + " " + deckMutedStyle.Render("press r to retry")
	case m.notice != "" && m.noticeErr:
		return deckErrorStyle.Render(m.notice)
	case m.notice != "":
		return deckOKStyle.Render(m.notice)
	default:
		return ""
	}
}

func (m deckModel) viewRecordList() string {
	records := m.overview.Records
	if len(records) == 0 {
		switch {
		case m.snapshot.Loading:
			return ""
		case m.spec.HasFilters():
			return deckMutedStyle.Render("No memories match the current filters. Press x to reset.")
		default:
			return deckMutedStyle.Render("No memories stored yet. Press a to add one.")
		}
	}

	width := m.lineWidth()
	lines := []string{
		deckSectionStyle.Render("memories"),
		deckMutedStyle.Render("  " + fitCell("AGE", ageColumnWidth) + " " + fitCell("USER", userColumnWidth) + " MEMORY"),
	}

	now := m.now()
	start, end := visibleRange(len(records), m.cursor, m.listHeight())
	for i := start; i < end; i++ {
		record := records[i]
		cursor := " "
		if i == m.cursor {
			cursor = ">"
		}

		created, ok := record.CreatedTime()
		tags := renderTags(record.Tags())
		memoryWidth := max(width-4-ageColumnWidth-userColumnWidth-lipgloss.Width(tags), 10)

		line := fmt.Sprintf("%s %s %s %s",
			cursor,
			fitCell(deck.FormatAge(created, ok, now), ageColumnWidth),
			fitCell(record.UserID, userColumnWidth),
			utils.Truncate(utils.SingleLine(record.Memory), memoryWidth),
		)
		if i == m.cursor {
			line = deckHighlightStyle.Render(line)
		}
		if tags != "" {
			line += " " + tags
		}
		lines = append(lines, line)
	}

	return strings.Join(lines, "\n")
}

func (m deckModel) viewDetail() string {
	record, ok := m.selected()
	if !ok {
		return ""
	}

	lines := []string{renderRule(m.width)}
	lines = append(lines, wrapText(record.Memory, m.lineWidth())...)
	lines = append(lines, deckMutedStyle.Render(fmt.Sprintf("%s · %s", deckUserStyle.Render(record.UserID), record.ID)))
	return strings.Join(lines, "\n")
}

func (m deckModel) viewFooter() string {
	switch m.mode {
	case modeSearch, modeAdd:
		return m.input.View()
	case modeConfirmDelete:
		return deckWarnStyle.Render(fmt.Sprintf("Delete %q? This cannot be undone. [y/N]",
			utils.Truncate(utils.SingleLine(m.pending.Memory), 40)))
	default:
		return deckMutedStyle.Render(m.help.View(m.keys))
	}
}

func (m deckModel) lineWidth() int {
	if m.width <= 0 {
		return defaultWidth
	}
	return m.width
}

func (m deckModel) listHeight() int {
	if m.height <= 0 {
		return defaultListHeight
	}
	return max(m.height-chromeHeight, 3)
}

func refreshCmd(d *deck.Deck) bubbletea.Cmd {
	return func() bubbletea.Msg {
		d.Refresh()
		return nil
	}
}

func addCmd(ctx context.Context, d *deck.Deck, text, owner string) bubbletea.Cmd {
	return func() bubbletea.Msg {
		record, err := d.AddRecord(ctx, text, owner)
		return mutationDoneMsg{op: mutation.OpAdd, record: record, err: err}
	}
}

// deleteCmd runs after the user typed y, so the coordinator is told the
// delete is already confirmed.
func deleteCmd(ctx context.Context, d *deck.Deck, record memory.Record) bubbletea.Cmd {
	return func() bubbletea.Msg {
		err := d.DeleteRecordWith(ctx, record.ID, mutation.AutoConfirm)
		return mutationDoneMsg{op: mutation.OpDelete, record: record, err: err}
	}
}

// cycle steps through "" and then each of values in order.
func cycle(values []string, current string) string {
	if len(values) == 0 {
		return ""
	}
	if current == "" {
		return values[0]
	}
	idx := slices.Index(values, current)
	if idx < 0 || idx == len(values)-1 {
		return ""
	}
	return values[idx+1]
}

func renderTags(tags []string) string {
	if len(tags) == 0 {
		return ""
	}
	parts := make([]string, 0, len(tags))
	for _, tag := range tags {
		parts = append(parts, lipgloss.NewStyle().Foreground(lipgloss.Color(deck.TagColor(tag))).Render("#"+tag))
	}
	return strings.Join(parts, " ")
}

func renderHeaderLine(width int, left, right string) string {
	lineWidth := width
	if lineWidth <= 0 {
		lineWidth = defaultWidth
	}
	leftWidth := lipgloss.Width(left)
	rightWidth := lipgloss.Width(right)
	if leftWidth+rightWidth+1 >= lineWidth {
		return strings.TrimSpace(left + " " + right)
	}
	spacing := lineWidth - leftWidth - rightWidth
	return left + strings.Repeat(" ", spacing) + right
}

func renderRule(width int) string {
	lineWidth := width
	if lineWidth <= 0 {
		lineWidth = defaultWidth
	}
	return deckDividerStyle.Render(strings.Repeat("─", lineWidth))
}

func fitCell(value string, width int) string {
	if width <= 0 {
		return value
	}
	return padRight(utils.Truncate(value, width), width)
}

func padRight(value string, width int) string {
	lineWidth := lipgloss.Width(value)
	if lineWidth >= width {
		return value
	}
	return value + strings.Repeat(" ", width-lineWidth)
}

func visibleRange(total, cursor, size int) (int, int) {
	if total <= 0 || size <= 0 {
		return 0, 0
	}
	if total <= size {
		return 0, total
	}
	if cursor < 0 {
		cursor = 0
	}
	if cursor >= total {
		cursor = total - 1
	}
	start := max(cursor-(size/2), 0)
	end := start + size
	if end > total {
		end = total
		start = max(end-size, 0)
	}
	return start, end
}

func clamp(value, upper int) int {
	if value < 0 {
		return 0
	}
	if value > upper {
		return max(upper, 0)
	}
	return value
}

func wrapText(text string, width int) []string {
	if width <= 0 {
		return []string{text}
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{""}
	}
	lines := []string{}
	current := ""
	for _, word := range words {
		if current == "" {
			current = word
			continue
		}
		if lipgloss.Width(current)+1+lipgloss.Width(word) <= width {
			current = current + " " + word
			continue
		}
		lines = append(lines, current)
		current = word
	}
	if current != "" {
		lines = append(lines, current)
	}
	return lines
}
