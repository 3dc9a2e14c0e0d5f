package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/paulmach/orb/geojson"
)

// PostGISSource reads a global mining-polygon table with the columns
// fid, "ISO3_CODE" and geom.
type PostGISSource struct {
	db    *sqlx.DB
	table string
}

type polygonRow struct {
	FID        int64  `db:"fid"`
	Country    string `db:"iso3"`
	Geometry   string `db:"geometry"`
	Properties string `db:"properties"`
}

func NewPostGISSource(db *sqlx.DB, table string) *PostGISSource {
	return &PostGISSource{db: db, table: table}
}

func ConnectPostGIS(ctx context.Context, connStr, table string) (*PostGISSource, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return NewPostGISSource(db, table), nil
}

func (s *PostGISSource) Close() error {
	return s.db.Close()
}

func (s *PostGISSource) query() string {
	return fmt.Sprintf(`
		SELECT
			t.fid AS fid,
			t."ISO3_CODE" AS iso3,
			ST_AsGeoJSON(t.geom) AS geometry,
			(to_jsonb(t) - 'geom')::text AS properties
		FROM %s t
		WHERE t."ISO3_CODE" = ANY($1)
		ORDER BY t.fid`, pq.QuoteIdentifier(s.table))
}

func (s *PostGISSource) Polygons(ctx context.Context, countries []string) ([]Polygon, error) {
	var rows []polygonRow
	if err := s.db.SelectContext(ctx, &rows, s.query(), pq.Array(countries)); err != nil {
		return nil, fmt.Errorf("failed to query mining polygons: %w", err)
	}

	polygons := make([]Polygon, 0, len(rows))
	for _, row := range rows {
		polygon, err := row.polygon()
		if err != nil {
			return nil, err
		}
		polygons = append(polygons, polygon)
	}
	return polygons, nil
}

func (r polygonRow) polygon() (Polygon, error) {
	geometry, err := geojson.UnmarshalGeometry([]byte(r.Geometry))
	if err != nil {
		return Polygon{}, fmt.Errorf("invalid geometry for polygon %d: %w", r.FID, err)
	}
	properties := map[string]interface{}{}
	if r.Properties != "" {
		if err := json.Unmarshal([]byte(r.Properties), &properties); err != nil {
			return Polygon{}, fmt.Errorf("invalid properties for polygon %d: %w", r.FID, err)
		}
	}
	return Polygon{
		ID:         strconv.FormatInt(r.FID, 10),
		Country:    r.Country,
		Geometry:   geometry.Geometry(),
		Properties: properties,
	}, nil
}
