package ui

import "github.com/rivo/tview"

// Pages is a navigation stack on top of tview.Pages. Every page is added
// once with AddPage; Push and Pop only change which one is in front.
type Pages struct {
	*tview.Pages
	stack    []string
	labels   map[string]string
	onChange func(top string, labels []string)
}

// NewPages creates an empty stack.
func NewPages() *Pages {
	return &Pages{
		Pages:  tview.NewPages(),
		labels: make(map[string]string),
	}
}

// SetOnChange registers a callback fired with the new top page and the
// breadcrumb labels after every stack change.
func (p *Pages) SetOnChange(fn func(top string, labels []string)) {
	p.onChange = fn
}

// SetLabel sets the breadcrumb label of a page; pages without a label use
// their name.
func (p *Pages) SetLabel(name, label string) {
	p.labels[name] = label
	if p.contains(name) {
		p.notify()
	}
}

// Push shows name on top of the current page. Pushing the current top is a
// no-op.
func (p *Pages) Push(name string) {
	if p.Current() == name {
		return
	}
	if len(p.stack) > 0 {
		p.HidePage(p.stack[len(p.stack)-1])
	}
	p.stack = append(p.stack, name)
	p.ShowPage(name)
	p.SendToFront(name)
	p.notify()
}

// Pop removes the top page and shows the previous one. The root page is
// never popped; Pop then returns "".
func (p *Pages) Pop() string {
	if len(p.stack) <= 1 {
		return ""
	}
	top := p.stack[len(p.stack)-1]
	p.HidePage(top)
	p.stack = p.stack[:len(p.stack)-1]
	current := p.stack[len(p.stack)-1]
	p.ShowPage(current)
	p.SendToFront(current)
	p.notify()
	return top
}

// Current returns the top page, or "" when the stack is empty.
func (p *Pages) Current() string {
	if len(p.stack) == 0 {
		return ""
	}
	return p.stack[len(p.stack)-1]
}

// Stack returns a copy of the page names, root first.
func (p *Pages) Stack() []string {
	s := make([]string, len(p.stack))
	copy(s, p.stack)
	return s
}

// Depth returns the number of pages on the stack.
func (p *Pages) Depth() int {
	return len(p.stack)
}

// Reset makes name the only page on the stack.
func (p *Pages) Reset(name string) {
	for _, n := range p.stack {
		p.HidePage(n)
	}
	p.stack = []string{name}
	p.ShowPage(name)
	p.SendToFront(name)
	p.notify()
}

func (p *Pages) contains(name string) bool {
	for _, n := range p.stack {
		if n == name {
			return true
		}
	}
	return false
}

func (p *Pages) notify() {
	if p.onChange == nil {
		return
	}
	labels := make([]string, len(p.stack))
	for i, n := range p.stack {
		labels[i] = n
		if l, ok := p.labels[n]; ok && l != "" {
			labels[i] = l
		}
	}
	p.onChange(p.Current(), labels)
}
