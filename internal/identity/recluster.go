package identity

import (
	"context"
	"fmt"

	"github.com/bEiGeOnE78/DIY-Photo-Tool/internal/cluster"
	"github.com/bEiGeOnE78/DIY-Photo-Tool/internal/database"
)

// FullOptions override the configured defaults for a full re-cluster.
// Zero values fall back to the configuration.
type FullOptions struct {
	Eps            float64
	MinSamples     int
	MatchThreshold float64
}

// IncrementalOptions override the configured defaults for incremental runs.
type IncrementalOptions struct {
	Eps            float64
	MinSamples     int
	MatchThreshold float64
	MaxIterations  int
}

// RunSummary reports what one clustering run did.
type RunSummary struct {
	FacesConsidered int
	ClustersFormed  int
	Noise           int
	PersonsCreated  int
	PersonsMatched  int
	FacesAssigned   int
	Iterations      int
}

func (s *Service) fullParams(opts FullOptions) (cluster.Params, float64, error) {
	p := cluster.Params{Eps: opts.Eps, MinSamples: opts.MinSamples}
	if p.Eps == 0 {
		p.Eps = s.cfg.Full.Eps
	}
	if p.MinSamples == 0 {
		p.MinSamples = s.cfg.Full.MinSamples
	}
	threshold := opts.MatchThreshold
	if threshold == 0 {
		threshold = s.cfg.Incremental.MatchThreshold
	}
	if err := p.Validate(); err != nil {
		return p, 0, err
	}
	if threshold <= 0 {
		return p, 0, fmt.Errorf("match threshold %f must be positive: %w", threshold, cluster.ErrInvalidParams)
	}
	return p, threshold, nil
}

func (s *Service) incrementalParams(opts IncrementalOptions) (cluster.Params, float64, int, error) {
	p := cluster.Params{Eps: opts.Eps, MinSamples: opts.MinSamples}
	if p.Eps == 0 {
		p.Eps = s.cfg.Incremental.Eps
	}
	if p.MinSamples == 0 {
		p.MinSamples = s.cfg.Incremental.MinSamples
	}
	threshold := opts.MatchThreshold
	if threshold == 0 {
		threshold = s.cfg.Incremental.MatchThreshold
	}
	maxIter := opts.MaxIterations
	if maxIter == 0 {
		maxIter = s.cfg.Incremental.MaxIterations
	}
	if maxIter < 1 {
		maxIter = 1
	}
	if err := p.Validate(); err != nil {
		return p, 0, 0, err
	}
	if threshold <= 0 {
		return p, 0, 0, fmt.Errorf("match threshold %f must be positive: %w", threshold, cluster.ErrInvalidParams)
	}
	return p, threshold, maxIter, nil
}

// RunFullRecluster re-clusters every unconfirmed face from scratch. Existing
// automatic assignments are discarded; clusters matching a stable identity
// within the match threshold are routed to it, the rest become new persons.
// Confirmed faces and stored person centroids are never touched.
func (s *Service) RunFullRecluster(ctx context.Context, opts FullOptions) (*RunSummary, error) {
	params, threshold, err := s.fullParams(opts)
	if err != nil {
		return nil, err
	}

	if !s.runMu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer s.runMu.Unlock()

	faces, err := s.store.ListUnconfirmed(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing unconfirmed faces: %w", err)
	}

	points := toPoints(faces)
	res, err := cluster.Run(points, params)
	if err != nil {
		return nil, fmt.Errorf("clustering: %w", err)
	}

	stable, err := s.store.ListStablePersons(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing stable persons: %w", err)
	}

	summary := &RunSummary{
		FacesConsidered: len(points),
		ClustersFormed:  len(res.Clusters),
		Noise:           len(res.Noise),
		Iterations:      1,
	}

	result := &database.ReclusterResult{ResetUnconfirmed: true}
	s.reconcile(res.Clusters, stable, threshold, result, summary)

	outcome, err := s.commit(ctx, result)
	if err != nil {
		return nil, err
	}
	summary.FacesAssigned = outcome.FacesAssigned
	summary.PersonsCreated = len(outcome.PersonsCreated)
	return summary, nil
}

// RunIncremental clusters only faces no prior run has assigned. Stable
// identity centroids act as fixed anchors; a new face within eps of an
// anchor joins that person directly. The remaining faces are density
// clustered among themselves and reconciled like a full run, without
// resetting any existing assignment.
func (s *Service) RunIncremental(ctx context.Context, opts IncrementalOptions) (*RunSummary, error) {
	params, threshold, _, err := s.incrementalParams(opts)
	if err != nil {
		return nil, err
	}

	if !s.runMu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer s.runMu.Unlock()

	return s.runIncrementalPass(ctx, params, threshold)
}

// RunIncrementalLoop repeats incremental passes until a pass assigns no
// faces or the iteration cap is reached.
func (s *Service) RunIncrementalLoop(ctx context.Context, opts IncrementalOptions) (*RunSummary, error) {
	params, threshold, maxIter, err := s.incrementalParams(opts)
	if err != nil {
		return nil, err
	}

	if !s.runMu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer s.runMu.Unlock()

	total := &RunSummary{}
	for i := 0; i < maxIter; i++ {
		pass, err := s.runIncrementalPass(ctx, params, threshold)
		if err != nil {
			return nil, err
		}
		total.Iterations++
		total.FacesConsidered = pass.FacesConsidered
		total.ClustersFormed += pass.ClustersFormed
		total.Noise = pass.Noise
		total.PersonsCreated += pass.PersonsCreated
		total.PersonsMatched += pass.PersonsMatched
		total.FacesAssigned += pass.FacesAssigned
		if pass.FacesAssigned == 0 {
			break
		}
	}
	return total, nil
}

func (s *Service) runIncrementalPass(ctx context.Context, params cluster.Params, threshold float64) (*RunSummary, error) {
	faces, err := s.store.ListUnassigned(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing unassigned faces: %w", err)
	}

	stable, err := s.store.ListStablePersons(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing stable persons: %w", err)
	}

	anchors := make([]cluster.Anchor, 0, len(stable))
	for _, p := range stable {
		if len(p.Centroid) == 0 {
			continue
		}
		anchors = append(anchors, cluster.Anchor{PersonID: p.ID, Centroid: p.Centroid})
	}

	points := toPoints(faces)
	res, err := cluster.RunIncremental(points, anchors, params)
	if err != nil {
		return nil, fmt.Errorf("incremental clustering: %w", err)
	}

	summary := &RunSummary{
		FacesConsidered: len(points),
		ClustersFormed:  len(res.Residual.Clusters),
		Noise:           len(res.Residual.Noise),
		Iterations:      1,
	}

	result := &database.ReclusterResult{}
	for _, am := range res.Anchored {
		if len(am.IDs) == 0 {
			continue
		}
		summary.PersonsMatched++
		for _, id := range am.IDs {
			result.Assignments = append(result.Assignments, database.Assignment{FaceID: id, PersonID: am.PersonID})
		}
	}
	s.reconcile(res.Residual.Clusters, stable, threshold, result, summary)

	outcome, err := s.commit(ctx, result)
	if err != nil {
		return nil, err
	}
	summary.FacesAssigned = outcome.FacesAssigned
	summary.PersonsCreated = len(outcome.PersonsCreated)
	return summary, nil
}

// reconcile routes each cluster either to the nearest stable identity within
// threshold or to a new person carrying the cluster centroid. Matching never
// rewrites the stable identity's stored centroid.
func (s *Service) reconcile(
	clusters []cluster.Cluster,
	stable []database.StablePerson,
	threshold float64,
	result *database.ReclusterResult,
	summary *RunSummary,
) {
	for _, c := range clusters {
		if personID, ok := nearestStable(stable, c.Centroid, threshold); ok {
			summary.PersonsMatched++
			for _, id := range c.IDs {
				result.Assignments = append(result.Assignments, database.Assignment{FaceID: id, PersonID: personID})
			}
			continue
		}
		result.NewPersons = append(result.NewPersons, database.NewPersonAssignment{
			Centroid: c.Centroid,
			FaceIDs:  c.IDs,
		})
	}
}

func (s *Service) commit(ctx context.Context, result *database.ReclusterResult) (*database.ReclusterOutcome, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	outcome, err := s.store.ApplyRecluster(ctx, result)
	if err != nil {
		return nil, fmt.Errorf("committing recluster: %w", err)
	}
	return outcome, nil
}
