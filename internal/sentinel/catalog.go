package sentinel

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/Prashanth-Madi/Terrascan-ML-Model/internal/imagery"
	"github.com/sirupsen/logrus"
)

const (
	catalogPageSize = 100
	cloudCoverField = "eo:cloud_cover"
)

type catalogFeature struct {
	ID         string `json:"id"`
	Properties struct {
		Datetime   time.Time `json:"datetime"`
		CloudCover *float64  `json:"eo:cloud_cover"`
	} `json:"properties"`
}

type catalogResponse struct {
	Features []catalogFeature `json:"features"`
	Context  struct {
		Next *int `json:"next"`
	} `json:"context"`
}

// Search lists every catalog item of the collection intersecting the query
// region inside the time window, following pagination. Results keep the
// order the catalog returned them in.
func (c *Client) Search(ctx context.Context, query imagery.Query) ([]imagery.Image, error) {
	box, err := bbox(query.Region)
	if err != nil {
		return nil, err
	}

	var key string
	if c.cache != nil {
		var cloud any
		if query.MaxCloudCover != nil {
			cloud = *query.MaxCloudCover
		}
		key = c.cache.GenerateKey(query.Collection, box, query.From.Unix(), query.To.Unix(), cloud, query.Bands)
		if images, ok := c.cache.Get(key); ok {
			c.log.WithField("collection", query.Collection).Debug("Catalog search served from cache")
			return images, nil
		}
	}

	payload := map[string]interface{}{
		"collections": []string{query.Collection},
		"bbox":        box,
		"datetime":    fmt.Sprintf("%s/%s", query.From.UTC().Format(time.RFC3339), query.To.UTC().Format(time.RFC3339)),
		"limit":       catalogPageSize,
		"fields": map[string]interface{}{
			"include": []string{"id", "properties.datetime", "properties." + cloudCoverField},
		},
	}
	if query.MaxCloudCover != nil {
		payload["filter-lang"] = "cql2-json"
		payload["filter"] = map[string]interface{}{
			"op": "<",
			"args": []interface{}{
				map[string]string{"property": cloudCoverField},
				*query.MaxCloudCover,
			},
		}
	}

	var images []imagery.Image
	for {
		page, err := c.searchPage(ctx, payload)
		if err != nil {
			return nil, err
		}
		for _, feature := range page.Features {
			img := imagery.Image{
				ID:         feature.ID,
				Collection: query.Collection,
				AcquiredAt: feature.Properties.Datetime,
				Bands:      slices.Clone(query.Bands),
			}
			if feature.Properties.CloudCover != nil {
				img.CloudCover = *feature.Properties.CloudCover
			}
			images = append(images, img)
		}
		if page.Context.Next == nil || len(page.Features) == 0 {
			break
		}
		payload["next"] = *page.Context.Next
	}

	c.log.WithFields(logrus.Fields{
		"collection": query.Collection,
		"images":     len(images),
	}).Debug("Catalog search finished")

	if c.cache != nil {
		if err := c.cache.Set(key, images); err != nil {
			c.log.WithError(err).Warn("Failed to cache catalog search")
		}
	}
	return images, nil
}

func (c *Client) searchPage(ctx context.Context, payload map[string]interface{}) (*catalogResponse, error) {
	response, err := c.post(ctx, catalogPath, payload)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()

	var page catalogResponse
	if err := json.NewDecoder(response.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("failed to decode catalog response: %w", err)
	}
	return &page, nil
}
