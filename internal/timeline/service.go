package timeline

import (
	"context"
	"log"
	"time"

	"backend-roadtrip/internal/apperr"
	"backend-roadtrip/internal/change"
	"backend-roadtrip/internal/model"
	"backend-roadtrip/internal/store"
	"backend-roadtrip/internal/trip"
)

// readAttempts bounds retries when a read lands on half-renumbered data.
const readAttempts = 3

type TripReader interface {
	GetTrip(ctx context.Context, id string) (trip.Trip, error)
}

type Observer interface {
	ObserveAssembly(scope string, d time.Duration, err error)
	ObserveCache(hit bool)
}

type Service struct {
	store     store.Store
	trips     TripReader
	cache     *Cache
	observer  Observer
	tolerance time.Duration
}

type Option func(*Service)

func WithCache(c *Cache) Option             { return func(s *Service) { s.cache = c } }
func WithObserver(o Observer) Option        { return func(s *Service) { s.observer = o } }
func WithTolerance(d time.Duration) Option { return func(s *Service) { s.tolerance = d } }

func NewService(s store.Store, trips TripReader, opts ...Option) *Service {
	svc := &Service{store: s, trips: trips}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type stintData struct {
	stint model.Stint
	stops []model.Stop
	legs  []model.Leg
}

func (s *Service) AssembleStintTimeline(ctx context.Context, stintID string) (out StintTimelineModel, err error) {
	started := time.Now()
	defer func() { s.observeAssembly("stint", started, err) }()

	err = s.retry(ctx, func() error {
		var data stintData
		if err := s.store.WithinTx(ctx, func(ctx context.Context, tx store.EntityStore) error {
			st, err := tx.GetStint(ctx, stintID)
			if err != nil {
				return err
			}
			data, err = loadStint(ctx, tx, st)
			return err
		}); err != nil {
			return err
		}
		out, err = s.assemble(ctx, data)
		return err
	})
	return out, err
}

func (s *Service) AssembleTripTimeline(ctx context.Context, tripID string) (out TripTimelineModel, err error) {
	started := time.Now()
	defer func() { s.observeAssembly("trip", started, err) }()

	gen, cacheErr := s.cache.Generation(ctx, tripID)
	if cacheErr == nil {
		cached, ok, err := s.cache.Get(ctx, tripID, gen)
		if err != nil {
			log.Printf("timeline cache get trip=%s: %v", tripID, err)
		}
		if s.cache != nil {
			s.observeCache(ok)
		}
		if ok {
			return cached, nil
		}
	} else {
		log.Printf("timeline cache generation trip=%s: %v", tripID, cacheErr)
	}

	info := TripInfo{ID: tripID}
	if s.trips != nil {
		t, err := s.trips.GetTrip(ctx, tripID)
		if err != nil {
			return TripTimelineModel{}, err
		}
		info.Title, info.Description = t.Title, t.Description
	}

	err = s.retry(ctx, func() error {
		var all []stintData
		if err := s.store.WithinTx(ctx, func(ctx context.Context, tx store.EntityStore) error {
			stints, err := tx.ListStintsByTrip(ctx, tripID)
			if err != nil {
				return err
			}
			// Without a trip reader only stints prove the trip exists.
			if len(stints) == 0 && s.trips == nil {
				return apperr.NotFound("trip", tripID)
			}
			all = make([]stintData, 0, len(stints))
			for _, st := range stints {
				data, err := loadStint(ctx, tx, st)
				if err != nil {
					return err
				}
				all = append(all, data)
			}
			return nil
		}); err != nil {
			return err
		}

		models := make([]StintTimelineModel, 0, len(all))
		for _, data := range all {
			m, err := s.assemble(ctx, data)
			if err != nil {
				return err
			}
			models = append(models, m)
		}
		out = AggregateTrip(info, models, s.tolerance)
		return nil
	})
	if err != nil {
		return TripTimelineModel{}, err
	}

	if cacheErr == nil {
		if err := s.cache.Set(ctx, tripID, gen, out); err != nil {
			log.Printf("timeline cache set trip=%s: %v", tripID, err)
		}
	}
	return out, nil
}

// Notify drops cached timelines of every trip a change touched.
func (s *Service) Notify(ctx context.Context, c change.Change) error {
	return s.cache.Invalidate(ctx, c.TripIDs...)
}

func loadStint(ctx context.Context, tx store.EntityStore, st model.Stint) (stintData, error) {
	stops, err := tx.ListStopsByStint(ctx, st.ID)
	if err != nil {
		return stintData{}, err
	}
	legs, err := tx.ListLegsByStint(ctx, st.ID)
	if err != nil {
		return stintData{}, err
	}
	return stintData{stint: st, stops: stops, legs: legs}, nil
}

func (s *Service) assemble(ctx context.Context, data stintData) (StintTimelineModel, error) {
	startID, endID := data.stint.StartLocationID, data.stint.EndLocationID
	if n := len(data.stops); n > 0 {
		if startID == "" {
			startID = data.stops[0].LocationID
		}
		if endID == "" {
			endID = data.stops[n-1].LocationID
		}
	}
	startName, err := s.nameOf(ctx, startID)
	if err != nil {
		return StintTimelineModel{}, err
	}
	endName, err := s.nameOf(ctx, endID)
	if err != nil {
		return StintTimelineModel{}, err
	}
	return AssembleStint(StintInput{
		Stint:             data.stint,
		Stops:             data.stops,
		Legs:              data.legs,
		StartLocationName: startName,
		EndLocationName:   endName,
	})
}

// nameOf resolves a location name. Unknown locations leave the name
// absent.
func (s *Service) nameOf(ctx context.Context, locationID string) (string, error) {
	if locationID == "" {
		return "", nil
	}
	name, err := s.store.NameOf(ctx, locationID)
	if apperr.Is(err, apperr.KindNotFound) {
		return "", nil
	}
	return name, err
}

func (s *Service) retry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt < readAttempts; attempt++ {
		if err = fn(); !apperr.IsRetryable(err) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return err
}

func (s *Service) observeAssembly(scope string, started time.Time, err error) {
	if s.observer != nil {
		s.observer.ObserveAssembly(scope, time.Since(started), err)
	}
}

func (s *Service) observeCache(hit bool) {
	if s.observer != nil {
		s.observer.ObserveCache(hit)
	}
}
