// Command seed populates a running matchd instance with synthetic
// volunteers, opportunities, applications and feedback, then fetches a
// sample of matches. Useful for local development and load smoke tests.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"sync"
	"time"
)

// Default configuration constants.
const (
	defaultVolunteers    = 500
	defaultOpportunities = 200
	defaultFeedback      = 1000
	defaultWorkers       = 8
	defaultTimeout       = 10 * time.Second
	defaultRunTimeout    = 5 * time.Minute
)

var (
	skills = []string{
		"teaching", "cooking", "first_aid", "carpentry", "translation",
		"web_design", "fundraising", "photography", "driving", "counseling",
	}
	causes = []string{
		"education", "environment", "health", "housing", "animal_welfare",
		"food_security", "elderly_care", "youth",
	}
	countries = map[string][]string{
		"DE": {"Berlin", "Hamburg", "Munich"},
		"NL": {"Amsterdam", "Rotterdam", "Utrecht"},
		"FR": {"Paris", "Lyon", "Marseille"},
	}
	availabilities = []string{"flexible", "one_time", "part_time", "full_time"}
	experiences    = []string{"", "beginner", "intermediate", "advanced", "expert"}
	urgencies      = []string{"low", "medium", "high"}
	outcomes       = []string{"applied", "accepted", "rejected", "completed"}
)

type seeder struct {
	baseURL string
	client  *http.Client
	rng     *rand.Rand
}

func main() {
	var (
		baseURL       = flag.String("url", "http://localhost:9080", "Base URL of the service")
		volunteers    = flag.Int("volunteers", defaultVolunteers, "Number of volunteers to create")
		opportunities = flag.Int("opportunities", defaultOpportunities, "Number of opportunities to create")
		feedback      = flag.Int("feedback", defaultFeedback, "Number of feedback events to submit")
		workers       = flag.Int("workers", defaultWorkers, "Number of concurrent submit workers")
		timeout       = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		randSeed      = flag.Int64("seed", time.Now().UnixNano(), "Random seed for reproducible data")
	)
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	s := &seeder{
		baseURL: *baseURL,
		client:  &http.Client{Timeout: *timeout},
		rng:     rand.New(rand.NewSource(*randSeed)),
	}

	if err := s.run(ctx, *volunteers, *opportunities, *feedback, *workers); err != nil {
		os.Stderr.WriteString("seed failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}

func (s *seeder) run(ctx context.Context, volunteers, opportunities, feedback, workers int) error {
	start := time.Now()

	volunteerIDs := make([]string, volunteers)
	for i := range volunteerIDs {
		volunteerIDs[i] = fmt.Sprintf("vol-%04d", i)
	}
	opportunityIDs := make([]string, opportunities)
	for i := range opportunityIDs {
		opportunityIDs[i] = fmt.Sprintf("opp-%04d", i)
	}

	volunteerBodies := make([]map[string]any, volunteers)
	for i, id := range volunteerIDs {
		volunteerBodies[i] = s.randomVolunteer(id)
	}
	opportunityBodies := make([]map[string]any, opportunities)
	for i, id := range opportunityIDs {
		opportunityBodies[i] = s.randomOpportunity(id)
	}
	feedbackBodies := make([]map[string]any, feedback)
	for i := range feedbackBodies {
		feedbackBodies[i] = map[string]any{
			"event_id":       fmt.Sprintf("seed-fb-%06d", i),
			"volunteer_id":   volunteerIDs[s.rng.Intn(volunteers)],
			"opportunity_id": opportunityIDs[s.rng.Intn(opportunities)],
			"outcome":        outcomes[s.rng.Intn(len(outcomes))],
			"ts":             time.Now().UTC().Format(time.RFC3339),
		}
	}

	if err := s.submitAll(ctx, "/volunteers", volunteerBodies, workers); err != nil {
		return err
	}
	if err := s.submitAll(ctx, "/opportunities", opportunityBodies, workers); err != nil {
		return err
	}
	fmt.Printf("created %d volunteers and %d opportunities\n", volunteers, opportunities)

	// A small application overlap makes the exclusion path observable.
	applications := volunteers / 10
	applicationBodies := make([]map[string]any, applications)
	for i := range applicationBodies {
		applicationBodies[i] = map[string]any{
			"volunteer_id":   volunteerIDs[s.rng.Intn(volunteers)],
			"opportunity_id": opportunityIDs[s.rng.Intn(opportunities)],
		}
	}
	if err := s.submitAll(ctx, "/applications", applicationBodies, workers); err != nil {
		return err
	}

	if err := s.submitAll(ctx, "/feedback", feedbackBodies, workers); err != nil {
		return err
	}
	fmt.Printf("submitted %d applications and %d feedback events\n", applications, feedback)

	// Fetch a sample of matches to verify the pipeline end to end.
	for i := 0; i < 3 && i < volunteers; i++ {
		if err := s.printMatches(ctx, volunteerIDs[s.rng.Intn(volunteers)]); err != nil {
			return err
		}
	}

	fmt.Printf("done in %s\n", time.Since(start).Round(time.Millisecond))
	return nil
}

func (s *seeder) randomVolunteer(id string) map[string]any {
	country, city := s.randomLocation()
	return map[string]any{
		"id":             id,
		"title":          "Volunteer " + id,
		"skills":         s.pick(skills, 1+s.rng.Intn(4)),
		"causes":         s.pick(causes, 1+s.rng.Intn(3)),
		"country":        country,
		"city":           city,
		"availability":   availabilities[s.rng.Intn(len(availabilities))],
		"hours_per_week": float64(2 + s.rng.Intn(20)),
		"experience":     experiences[1+s.rng.Intn(len(experiences)-1)],
		"rating":         2.5 + s.rng.Float64()*2.5,
	}
}

func (s *seeder) randomOpportunity(id string) map[string]any {
	country, city := s.randomLocation()
	return map[string]any{
		"id":                  id,
		"title":               "Opportunity " + id,
		"skills":              s.pick(skills, 1+s.rng.Intn(3)),
		"causes":              s.pick(causes, 1+s.rng.Intn(2)),
		"country":             country,
		"city":                city,
		"remote_allowed":      s.rng.Intn(4) == 0,
		"commitment":          availabilities[s.rng.Intn(len(availabilities))],
		"hours_per_week":      float64(2 + s.rng.Intn(15)),
		"required_experience": experiences[s.rng.Intn(len(experiences))],
		"urgency":             urgencies[s.rng.Intn(len(urgencies))],
	}
}

func (s *seeder) randomLocation() (string, string) {
	keys := make([]string, 0, len(countries))
	for k := range countries {
		keys = append(keys, k)
	}
	country := keys[s.rng.Intn(len(keys))]
	cities := countries[country]
	return country, cities[s.rng.Intn(len(cities))]
}

func (s *seeder) pick(from []string, n int) []string {
	idx := s.rng.Perm(len(from))
	if n > len(from) {
		n = len(from)
	}
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = from[idx[i]]
	}
	return out
}

// submitAll posts the bodies to path using a bounded worker group. The
// first error aborts the remaining submissions.
func (s *seeder) submitAll(ctx context.Context, path string, bodies []map[string]any, workers int) error {
	jobs := make(chan map[string]any)
	errs := make(chan error, workers)
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for body := range jobs {
				if err := s.post(ctx, path, body); err != nil {
					select {
					case errs <- err:
					default:
					}
					return
				}
			}
		}()
	}

	for _, body := range bodies {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return ctx.Err()
		case err := <-errs:
			close(jobs)
			wg.Wait()
			return err
		case jobs <- body:
		}
	}
	close(jobs)
	wg.Wait()

	select {
	case err := <-errs:
		return err
	default:
		return nil
	}
}

func (s *seeder) post(ctx context.Context, path string, body map[string]any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("POST %s: unexpected status %d", path, resp.StatusCode)
	}
	return nil
}

func (s *seeder) printMatches(ctx context.Context, volunteerID string) error {
	url := fmt.Sprintf("%s/matches?volunteer_id=%s&limit=5", s.baseURL, volunteerID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET /matches: unexpected status %d", resp.StatusCode)
	}

	var results []struct {
		CandidateID string   `json:"candidate_id"`
		Score       float64  `json:"score"`
		Reasons     []string `json:"reasons"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return err
	}
	fmt.Printf("matches for %s:\n", volunteerID)
	for _, r := range results {
		fmt.Printf("  %-10s %6.2f %v\n", r.CandidateID, r.Score, r.Reasons)
	}
	return nil
}
