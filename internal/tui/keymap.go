package tui

import "charm.land/bubbles/v2/key"

// keyMap holds every dashboard binding.
type keyMap struct {
	quit           key.Binding
	reload         key.Binding
	toggleHelp     key.Binding
	moveUp         key.Binding
	moveDown       key.Binding
	toggleDetail   key.Binding
	nextView       key.Binding
	nextDepartment key.Binding
	search         key.Binding
	cycleSort      key.Binding
	toggleOrder    key.Binding
	toggleArchived key.Binding
	archive        key.Binding
	restore        key.Binding
	progressUp     key.Binding
	progressDown   key.Binding
	addUpdate      key.Binding
	copyProjectID  key.Binding
	clearError     key.Binding
}

// newKeyMap constructs the default bindings.
func newKeyMap() keyMap {
	return keyMap{
		quit:           key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		reload:         key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		toggleHelp:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
		moveUp:         key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "up")),
		moveDown:       key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "down")),
		toggleDetail:   key.NewBinding(key.WithKeys("enter", "i"), key.WithHelp("enter", "details")),
		nextView:       key.NewBinding(key.WithKeys("v", "tab"), key.WithHelp("v", "next view")),
		nextDepartment: key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "department")),
		search:         key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		cycleSort:      key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sort field")),
		toggleOrder:    key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "sort order")),
		toggleArchived: key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "toggle archived")),
		archive:        key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "archive")),
		restore:        key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "restore")),
		progressUp:     key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "progress up")),
		progressDown:   key.NewBinding(key.WithKeys("-", "_"), key.WithHelp("-", "progress down")),
		addUpdate:      key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "post update")),
		copyProjectID:  key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy project id")),
		clearError:     key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "dismiss error")),
	}
}

// ShortHelp returns the bindings shown in the footer.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.toggleDetail, k.nextView, k.search, k.progressUp, k.progressDown, k.addUpdate, k.toggleHelp, k.quit,
	}
}

// FullHelp returns every binding grouped by concern.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.moveUp, k.moveDown, k.toggleDetail, k.reload, k.toggleHelp, k.quit},
		{k.nextView, k.nextDepartment, k.search, k.cycleSort, k.toggleOrder, k.toggleArchived},
		{k.archive, k.restore, k.progressUp, k.progressDown, k.addUpdate, k.copyProjectID, k.clearError},
	}
}
