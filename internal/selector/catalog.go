package selector

import "fmt"

// Action is a logical UI step independent of how its element is found.
type Action string

const (
	OpenAddDialog       Action = "open_add_dialog"
	SelectWebsiteOption Action = "select_website_option"
	FillURLField        Action = "fill_url_field"
	ClickInsert         Action = "click_insert"
)

// Actions lists every logical action in the order an item uses them.
var Actions = []Action{OpenAddDialog, SelectWebsiteOption, FillURLField, ClickInsert}

// IndicatorSet names a group of elements whose presence signals a UI state.
type IndicatorSet string

const (
	// Ready means the workspace finished loading after login.
	Ready IndicatorSet = "ready"
	// Chooser means the source-type menu is open.
	Chooser IndicatorSet = "chooser"
	// Evidence means the last submission was accepted.
	Evidence IndicatorSet = "evidence"
	// NextReady means the page can take another item.
	NextReady IndicatorSet = "next_ready"
	// Section is the sub-region the add button normally lives in.
	Section IndicatorSet = "section"
)

// UI labels in every locale the notebook is known to render.
var (
	labelsAdd     = []string{"Add", "追加"}
	labelsWebsite = []string{"Website", "ウェブサイト"}
	labelsInsert  = []string{"Insert", "挿入"}
	labelsURL     = []string{"URL", "Paste URL", "URL を貼り付け"}
	labelsSource  = []string{"Source", "ソース"}
)

// Catalog maps each action to its ordered candidates and each indicator set
// to its members. A Catalog is not modified after construction.
type Catalog struct {
	actions    map[Action][]Candidate
	indicators map[IndicatorSet][]Candidate
}

// DefaultCatalog returns the built-in selectors. Within each action,
// structural candidates come before text ones.
func DefaultCatalog() *Catalog {
	webIcon := `.//mat-icon[normalize-space()="web"]`

	return &Catalog{
		actions: map[Action][]Candidate{
			OpenAddDialog: join(
				[]Candidate{
					CSS(`button[aria-label="Add source"]`),
					CSS(`button[aria-label="ソースを追加"]`),
					CSS(`button:has(mat-icon[fonticon="add"])`),
				},
				texts("button", labelsAdd),
			),
			SelectWebsiteOption: join(
				[]Candidate{
					XPath(`//span[contains(@class, "mat-mdc-chip-action")][` + webIcon + `]`),
					XPath(`//mat-chip-option[` + webIcon + `]`),
				},
				texts("span", labelsWebsite),
				texts("div", labelsWebsite),
				// Last resort: any element carrying the label.
				texts("*", labelsWebsite),
			),
			FillURLField: join(
				[]Candidate{
					CSS(`input[formcontrolname="newUrl"]`),
					CSS(`input[type="url"]`),
					CSS(`input.mat-mdc-input-element`),
					XPath(`//div[` + webIcon + `]//input`),
					CSS(`div.mat-mdc-form-field-flex input`),
				},
				labeledInputs(labelsURL),
			),
			ClickInsert: join(
				[]Candidate{
					CSS(`mat-dialog-container button[type="submit"]`),
					CSS(`.mat-mdc-dialog-container button[type="submit"]`),
				},
				texts("button", labelsInsert),
			),
		},
		indicators: map[IndicatorSet][]Candidate{
			Ready: join(
				[]Candidate{CSS(`.editable-project-title, editable-project-title`)},
				texts("div", labelsSource),
			),
			Chooser: join(
				[]Candidate{CSS(`mat-chip-option, mat-chip, .mdc-evolution-chip, .mat-mdc-chip`)},
				texts("span", labelsWebsite),
			),
			Evidence: {
				CSS(`.mat-dialog-container:not([style*="visibility: visible"])`),
				CSS(`div.source-list`),
				CSS(`.source-item`),
				CSS(`.mat-list-item`),
				CSS(`.url-item`),
				CSS(`ul li`),
			},
			NextReady: join(texts("button", labelsAdd), []Candidate{CSS(`div.source-list`)}),
			Section: {
				CSS(`section, .mat-expansion-panel, mat-card, .section-container`),
			},
		},
	}
}

// NewCatalog builds a catalog from explicit lists.
func NewCatalog(actions map[Action][]Candidate, indicators map[IndicatorSet][]Candidate) *Catalog {
	c := &Catalog{actions: actions, indicators: indicators}
	if c.actions == nil {
		c.actions = map[Action][]Candidate{}
	}
	if c.indicators == nil {
		c.indicators = map[IndicatorSet][]Candidate{}
	}
	return c.clone()
}

func join(groups ...[]Candidate) []Candidate {
	var out []Candidate
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

func texts(tag string, labels []string) []Candidate {
	out := make([]Candidate, 0, len(labels))
	for _, l := range labels {
		out = append(out, Text(tag, l))
	}
	return out
}

// labeledInputs matches inputs nested under a container showing one of labels.
func labeledInputs(labels []string) []Candidate {
	out := make([]Candidate, 0, len(labels))
	for _, l := range labels {
		c := XPath(fmt.Sprintf("//div[contains(normalize-space(.), %s)]//input", xpathLiteral(l)))
		c.Localized = true
		out = append(out, c)
	}
	return out
}

// CandidatesFor returns a copy of the ordered candidates for a.
func (c *Catalog) CandidatesFor(a Action) []Candidate {
	return append([]Candidate(nil), c.actions[a]...)
}

// Indicators returns a copy of the members of set.
func (c *Catalog) Indicators(set IndicatorSet) []Candidate {
	return append([]Candidate(nil), c.indicators[set]...)
}

// Override returns a copy of c where a's candidates are replaced by exprs.
// An empty exprs leaves the defaults in place.
func (c *Catalog) Override(a Action, exprs []string) *Catalog {
	parsed := ParseAll(exprs)
	if len(parsed) == 0 {
		return c
	}
	out := c.clone()
	out.actions[a] = parsed
	return out
}

// OverrideIndicators is Override for indicator sets.
func (c *Catalog) OverrideIndicators(set IndicatorSet, exprs []string) *Catalog {
	parsed := ParseAll(exprs)
	if len(parsed) == 0 {
		return c
	}
	out := c.clone()
	out.indicators[set] = parsed
	return out
}

// Validate reports an action left without candidates.
func (c *Catalog) Validate() error {
	for _, a := range Actions {
		if len(c.actions[a]) == 0 {
			return fmt.Errorf("selector catalog has no candidates for %s", a)
		}
	}
	return nil
}

func (c *Catalog) clone() *Catalog {
	out := &Catalog{
		actions:    make(map[Action][]Candidate, len(c.actions)),
		indicators: make(map[IndicatorSet][]Candidate, len(c.indicators)),
	}
	for k, v := range c.actions {
		out.actions[k] = append([]Candidate(nil), v...)
	}
	for k, v := range c.indicators {
		out.indicators[k] = append([]Candidate(nil), v...)
	}
	return out
}
