package ui

// dashboardSection is one titled group of channels on the start screen.
type dashboardSection struct {
	title    string
	channels []string
}

// dashboard holds the channel picker: sections plus a flat cursor over
// all entries so digits and arrows address the same list.
type dashboard struct {
	sections []dashboardSection
	cursor   int
}

// rebuild assembles the sections. Followed channels come live-first;
// duplicates keep their first (highest-priority) section.
func (d *dashboard) rebuild(defaultChannel string, recent []string, followed []FollowedEntry) {
	seen := make(map[string]struct{})
	add := func(list *[]string, login string) {
		if login == "" {
			return
		}
		if _, dup := seen[login]; dup {
			return
		}
		seen[login] = struct{}{}
		*list = append(*list, login)
	}

	var defaults, recents, follows []string
	add(&defaults, defaultChannel)
	for _, login := range recent {
		add(&recents, login)
	}
	for _, e := range followed {
		if e.Live {
			add(&follows, e.Login)
		}
	}
	for _, e := range followed {
		if !e.Live {
			add(&follows, e.Login)
		}
	}

	d.sections = d.sections[:0]
	if len(defaults) > 0 {
		d.sections = append(d.sections, dashboardSection{title: "Default", channels: defaults})
	}
	if len(recents) > 0 {
		d.sections = append(d.sections, dashboardSection{title: "Recent", channels: recents})
	}
	if len(follows) > 0 {
		d.sections = append(d.sections, dashboardSection{title: "Followed", channels: follows})
	}
	if d.cursor >= d.len() {
		d.cursor = 0
	}
}

// flat returns all channels in display order.
func (d *dashboard) flat() []string {
	var out []string
	for _, s := range d.sections {
		out = append(out, s.channels...)
	}
	return out
}

func (d *dashboard) len() int {
	n := 0
	for _, s := range d.sections {
		n += len(s.channels)
	}
	return n
}

// selected returns the channel under the cursor.
func (d *dashboard) selected() (string, bool) {
	flat := d.flat()
	if d.cursor < 0 || d.cursor >= len(flat) {
		return "", false
	}
	return flat[d.cursor], true
}

// at returns channel number n (0-based), for digit selection. Out of
// range numbers return false.
func (d *dashboard) at(n int) (string, bool) {
	flat := d.flat()
	if n < 0 || n >= len(flat) {
		return "", false
	}
	return flat[n], true
}

func (d *dashboard) move(delta int) {
	n := d.len()
	if n == 0 {
		return
	}
	d.cursor += delta
	if d.cursor < 0 {
		d.cursor = 0
	}
	if d.cursor >= n {
		d.cursor = n - 1
	}
}
