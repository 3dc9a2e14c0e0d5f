package discovery

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/paulmach/orb"
	"github.com/serjvanilla/go-overpass"
	"github.com/sirupsen/logrus"
)

// OverpassSource finds closed landuse=quarry ways inside each country.
type OverpassSource struct {
	client overpass.Client
	log    logrus.FieldLogger
}

func NewOverpassSource(endpoint string, timeout time.Duration, log logrus.FieldLogger) *OverpassSource {
	httpClient := &http.Client{
		Timeout: timeout,
	}
	return &OverpassSource{
		client: overpass.NewWithSettings(endpoint, 2, httpClient),
		log:    log,
	}
}

func quarryQuery(country string) string {
	return fmt.Sprintf(`
		[out:json][timeout:180];
		area["ISO3166-1:alpha3"="%s"]["admin_level"="2"]->.country;
		(
			way["landuse"="quarry"](area.country);
		);
		out body;
		>;
		out skel qt;
	`, country)
}

func (s *OverpassSource) Polygons(ctx context.Context, countries []string) ([]Polygon, error) {
	var polygons []Polygon
	for _, country := range countries {
		result, err := s.executeQuery(ctx, quarryQuery(country))
		if err != nil {
			return nil, fmt.Errorf("failed to query quarries in %s: %w", country, err)
		}
		found := convertWays(result, country)
		s.log.WithFields(logrus.Fields{"country": country, "polygons": len(found)}).Info("Fetched quarries")
		polygons = append(polygons, found...)
	}
	return polygons, nil
}

func (s *OverpassSource) executeQuery(ctx context.Context, query string) (*overpass.Result, error) {
	type response struct {
		result overpass.Result
		err    error
	}
	done := make(chan response, 1)
	go func() {
		result, err := s.client.Query(query)
		done <- response{result, err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-done:
		if r.err != nil {
			return nil, fmt.Errorf("overpass query failed: %w", r.err)
		}
		return &r.result, nil
	}
}

// convertWays keeps closed ways with at least a triangle, ordered by id.
func convertWays(result *overpass.Result, country string) []Polygon {
	var polygons []Polygon
	for _, way := range result.Ways {
		ring := make(orb.Ring, 0, len(way.Nodes))
		for _, node := range way.Nodes {
			if node == nil {
				ring = nil
				break
			}
			ring = append(ring, orb.Point{node.Lon, node.Lat})
		}
		if len(ring) < 4 || !ring.Closed() {
			continue
		}

		properties := map[string]interface{}{"osm_id": way.ID}
		for key, value := range way.Tags {
			properties[key] = value
		}
		polygons = append(polygons, Polygon{
			ID:         strconv.FormatInt(way.ID, 10),
			Country:    country,
			Geometry:   orb.Polygon{ring},
			Properties: properties,
		})
	}
	sort.Slice(polygons, func(i, j int) bool {
		a, _ := strconv.ParseInt(polygons[i].ID, 10, 64)
		b, _ := strconv.ParseInt(polygons[j].ID, 10, 64)
		return a < b
	})
	return polygons
}
