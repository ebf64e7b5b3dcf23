// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package evidence

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pdiddy/gene-disease-engine/pkg/types"
)

const associatedTargetsQuery = `query DiseaseTargets($efoId: String!, $index: Int!, $size: Int!) {
  disease(efoId: $efoId) {
    id
    name
    associatedTargets(page: {index: $index, size: $size}) {
      count
      rows {
        score
        target { id approvedSymbol }
        datatypeScores { id score }
      }
    }
  }
}`

// OpenTargets collects the target-disease association score from the Open
// Targets Platform GraphQL API.
type OpenTargets struct {
	Client JSONClient
	Config types.SourcesConfig
	Logger *slog.Logger
}

// Name returns the source identifier.
func (s *OpenTargets) Name() string { return SourceOpenTargets }

// Association pages through the disease's associated targets until the
// gene's Ensembl id appears or the pages are exhausted. A fetch failure ends
// the scan and yields nil without an error.
func (s *OpenTargets) Association(ctx context.Context, gene types.ResolvedGene, disease types.ResolvedDisease) (*types.AssociationScore, error) {
	diseaseID := disease.OntologyID()
	if diseaseID == "" || gene.EnsemblID == "" {
		return nil, nil
	}
	size := s.Config.OpenTargetsPageSize
	if size <= 0 {
		size = 50
	}
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}

	for index := 0; ; index++ {
		page, err := s.fetchPage(ctx, diseaseID, index, size)
		if err != nil {
			logger.Warn("association page fetch failed", "source", SourceOpenTargets, "disease", diseaseID,
				"page", index, "error", err)
			return nil, nil
		}
		if page == nil || len(page.AssociatedTargets.Rows) == 0 {
			return nil, nil
		}

		for _, row := range page.AssociatedTargets.Rows {
			if row.Target.ID != gene.EnsemblID {
				continue
			}
			score := &types.AssociationScore{
				OverallScore:   row.Score,
				DatatypeScores: make([]types.DatatypeScore, 0, len(row.DatatypeScores)),
				Disease:        types.EntityRef{ID: page.ID, Name: page.Name},
				Target:         types.EntityRef{ID: row.Target.ID, Name: row.Target.ApprovedSymbol},
			}
			for _, ds := range row.DatatypeScores {
				score.DatatypeScores = append(score.DatatypeScores, types.DatatypeScore{ID: ds.ID, Score: ds.Score})
			}
			return score, nil
		}

		if (index+1)*size >= page.AssociatedTargets.Count {
			return nil, nil
		}
	}
}

func (s *OpenTargets) fetchPage(ctx context.Context, diseaseID string, index, size int) (*otDisease, error) {
	body := graphQLRequest{
		Query: associatedTargetsQuery,
		Variables: map[string]any{
			"efoId": diseaseID,
			"index": index,
			"size":  size,
		},
	}
	var resp otResponse
	if err := s.Client.PostJSON(ctx, s.Config.Endpoints.OpenTargets, body, &resp); err != nil {
		return nil, err
	}
	if len(resp.Errors) > 0 {
		msgs := make([]string, len(resp.Errors))
		for i, e := range resp.Errors {
			msgs[i] = e.Message
		}
		return nil, fmt.Errorf("graphql: %s", strings.Join(msgs, "; "))
	}
	return resp.Data.Disease, nil
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

// Open Targets GraphQL JSON structures.
type otResponse struct {
	Data struct {
		Disease *otDisease `json:"disease"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

type otDisease struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	AssociatedTargets struct {
		Count int     `json:"count"`
		Rows  []otRow `json:"rows"`
	} `json:"associatedTargets"`
}

type otRow struct {
	Score  float64 `json:"score"`
	Target struct {
		ID             string `json:"id"`
		ApprovedSymbol string `json:"approvedSymbol"`
	} `json:"target"`
	DatatypeScores []struct {
		ID    string  `json:"id"`
		Score float64 `json:"score"`
	} `json:"datatypeScores"`
}
