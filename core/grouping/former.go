package grouping

import (
	"fmt"
	"sort"

	"github.com/jayquinn/interview-scheduler/core/logger"
	"github.com/jayquinn/interview-scheduler/core/model"
	"github.com/jayquinn/interview-scheduler/core/schederr"
	infralogger "github.com/jayquinn/interview-scheduler/infra/logger"
)

// Formation is the result of grouping one or more batched activities.
type Formation struct {
	// Groups maps activity name to its groups in job-code order.
	Groups map[string][]model.Group
	// Dummies counts placeholder members created.
	Dummies int
	// Roster holds the real candidates followed by the placeholders.
	Roster []model.Candidate
}

// All returns every group of the formation in activity order.
func (f Formation) All(order []string) []model.Group {
	var out []model.Group
	for _, a := range order {
		out = append(out, f.Groups[a]...)
	}
	return out
}

// Former builds groups for one day run. Its ID counters are not shared
// between days.
type Former struct {
	cache    *Cache
	log      logger.Logger
	groupSeq map[string]int
	dummySeq map[string]int
}

// NewFormer creates a Former using the shared cache (which may be nil).
func NewFormer(cache *Cache, log logger.Logger) *Former {
	return &Former{
		cache:    cache,
		log:      infralogger.OrNop(log),
		groupSeq: make(map[string]int),
		dummySeq: make(map[string]int),
	}
}

// Form partitions the candidates needing activity into groups. Candidates
// keep roster order within each job code.
func (f *Former) Form(activity model.Activity, candidates []model.Candidate, b model.Bounds) (Formation, error) {
	res := Formation{Groups: map[string][]model.Group{}}
	if err := b.Validate(); err != nil {
		return res, schederr.Config(activity.Name, "%v", err)
	}
	byJob := make(map[string][]string)
	headcounts := make(map[string]int)
	var jobs []string
	for _, c := range candidates {
		if c.Placeholder || !c.Needs(activity.Name) {
			continue
		}
		if _, ok := byJob[c.JobCode]; !ok {
			jobs = append(jobs, c.JobCode)
		}
		byJob[c.JobCode] = append(byJob[c.JobCode], c.ID)
		headcounts[c.JobCode]++
	}
	if len(jobs) == 0 {
		f.log.Debugf("activity %s: no candidates, no groups", activity.Name)
		return res, nil
	}
	sort.Strings(jobs)
	plan := f.cache.Plan(activity.Name, b, headcounts)

	var groups []model.Group
	for _, job := range jobs {
		members := byJob[job]
		next := 0
		for _, size := range plan[job] {
			f.groupSeq[activity.Name+"/"+job]++
			g := model.Group{
				ID:       fmt.Sprintf("%s-%s-G%02d", activity.Name, job, f.groupSeq[activity.Name+"/"+job]),
				JobCode:  job,
				Activity: activity.Name,
			}
			for len(g.Members) < size && next < len(members) {
				g.Members = append(g.Members, members[next])
				next++
			}
			for len(g.Members) < size {
				d := f.placeholder(job, activity.Name)
				g.Members = append(g.Members, d.ID)
				g.Dummies++
				res.Roster = append(res.Roster, d)
				res.Dummies++
			}
			groups = append(groups, g)
		}
	}
	res.Groups[activity.Name] = groups
	f.log.Debugw("groups formed", map[string]any{
		"activity": activity.Name,
		"groups":   len(groups),
		"dummies":  res.Dummies,
	})
	return res, nil
}

// FormDay forms groups for every batched activity of the day.
func (f *Former) FormDay(day model.DateConfig, g model.GlobalConfig, candidates []model.Candidate) (Formation, error) {
	res := Formation{Groups: map[string][]model.Group{}, Roster: append([]model.Candidate(nil), candidates...)}
	for _, a := range day.Activities {
		if !a.Batched() {
			continue
		}
		part, err := f.Form(a, candidates, g.BoundsFor(a))
		if err != nil {
			return res, err
		}
		res.Groups[a.Name] = part.Groups[a.Name]
		res.Dummies += part.Dummies
		res.Roster = append(res.Roster, part.Roster...)
	}
	return res, nil
}

func (f *Former) placeholder(job, activity string) model.Candidate {
	f.dummySeq[job]++
	return model.Candidate{
		ID:          fmt.Sprintf("%s%s-%03d", model.DummyPrefix, job, f.dummySeq[job]),
		JobCode:     job,
		Activities:  []string{activity},
		Placeholder: true,
	}
}
