package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/bakesight/bakesight-server/internal/domain"
	"github.com/bakesight/bakesight-server/internal/search"
	"github.com/bakesight/bakesight-server/internal/service"
)

func (s *Server) registerItemRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listItems",
		Method:      http.MethodGet,
		Path:        "/api/v1/items",
		Summary:     "List items",
		Description: "Returns the product catalog, or search results when q is given",
		Tags:        []string{"Items"},
	}, s.handleListItems)

	huma.Register(s.api, huma.Operation{
		OperationID: "getItem",
		Method:      http.MethodGet,
		Path:        "/api/v1/items/{id}",
		Summary:     "Get item",
		Description: "Returns one catalog item by ID",
		Tags:        []string{"Items"},
	}, s.handleGetItem)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateItem",
		Method:      http.MethodPatch,
		Path:        "/api/v1/items/{id}",
		Summary:     "Update item",
		Description: "Changes an item's production settings, such as its batch floor",
		Tags:        []string{"Items"},
	}, s.handleUpdateItem)

	huma.Register(s.api, huma.Operation{
		OperationID: "listItemAliases",
		Method:      http.MethodGet,
		Path:        "/api/v1/items/{id}/aliases",
		Summary:     "List item aliases",
		Description: "Returns the raw export names mapped to an item",
		Tags:        []string{"Items"},
	}, s.handleListItemAliases)

	huma.Register(s.api, huma.Operation{
		OperationID: "addItemAlias",
		Method:      http.MethodPost,
		Path:        "/api/v1/items/{id}/aliases",
		Summary:     "Add item alias",
		Description: "Maps a raw export name onto an item for future ingests",
		Tags:        []string{"Items"},
	}, s.handleAddItemAlias)

	huma.Register(s.api, huma.Operation{
		OperationID: "mergeItems",
		Method:      http.MethodPost,
		Path:        "/api/v1/items/merge",
		Summary:     "Merge items",
		Description: "Folds the source item into the target, combining sales histories",
		Tags:        []string{"Items"},
	}, s.handleMergeItems)

	huma.Register(s.api, huma.Operation{
		OperationID: "getItemBaseline",
		Method:      http.MethodGet,
		Path:        "/api/v1/items/{id}/baseline",
		Summary:     "Get item baseline",
		Description: "Returns the item's current weekday baseline and trailing statistics",
		Tags:        []string{"Items"},
	}, s.handleGetItemBaseline)
}

// ItemResponse represents a catalog item.
type ItemResponse struct {
	ID            string `json:"id" doc:"Item ID"`
	CanonicalName string `json:"canonical_name" doc:"Display name"`
	Category      string `json:"category,omitempty" doc:"Product category"`
	Active        bool   `json:"active" doc:"Whether the item is forecast"`
	MinBatch      int    `json:"min_batch,omitempty" doc:"Per-item batch floor; 0 means the configured default"`
	CreatedAt     string `json:"created_at" doc:"When the item was created"`
}

func itemResponse(item *domain.Item) ItemResponse {
	return ItemResponse{
		ID:            item.ID,
		CanonicalName: item.CanonicalName,
		Category:      item.Category,
		Active:        item.Active,
		MinBatch:      item.MinBatch,
		CreatedAt:     item.CreatedAt.Format(time.RFC3339),
	}
}

// SearchHitResponse is one full-text search hit.
type SearchHitResponse struct {
	ItemID   string  `json:"item_id" doc:"Item ID"`
	Name     string  `json:"name" doc:"Item name"`
	Category string  `json:"category,omitempty" doc:"Product category"`
	Score    float64 `json:"score" doc:"Relevance score"`
}

type ListItemsInput struct {
	Query  string `query:"q" doc:"Full-text search over names and aliases"`
	Limit  int    `query:"limit" default:"20" minimum:"1" maximum:"100" doc:"Maximum search hits"`
	Offset int    `query:"offset" minimum:"0" doc:"Search hit offset"`
}

type ListItemsOutput struct {
	Body struct {
		Items []ItemResponse      `json:"items,omitempty" doc:"Catalog items (when not searching)"`
		Hits  []SearchHitResponse `json:"hits,omitempty" doc:"Search hits (when q is given)"`
		Total uint64              `json:"total" doc:"Total catalog items or search hits"`
	}
}

func (s *Server) handleListItems(ctx context.Context, input *ListItemsInput) (*ListItemsOutput, error) {
	out := &ListItemsOutput{}

	if input.Query != "" {
		result, err := s.services.Item.Search(ctx, search.Params{
			Query:  input.Query,
			Limit:  input.Limit,
			Offset: input.Offset,
		})
		if err != nil {
			return nil, err
		}
		out.Body.Total = result.Total
		out.Body.Hits = make([]SearchHitResponse, 0, len(result.Hits))
		for _, hit := range result.Hits {
			out.Body.Hits = append(out.Body.Hits, SearchHitResponse{
				ItemID:   hit.ItemID,
				Name:     hit.Name,
				Category: hit.Category,
				Score:    hit.Score,
			})
		}
		return out, nil
	}

	items, err := s.services.Item.List(ctx)
	if err != nil {
		return nil, err
	}
	out.Body.Total = uint64(len(items))
	out.Body.Items = make([]ItemResponse, 0, len(items))
	for _, item := range items {
		out.Body.Items = append(out.Body.Items, itemResponse(item))
	}
	return out, nil
}

type GetItemInput struct {
	ID string `path:"id" doc:"Item ID"`
}

type GetItemOutput struct {
	Body ItemResponse
}

func (s *Server) handleGetItem(ctx context.Context, input *GetItemInput) (*GetItemOutput, error) {
	item, err := s.services.Item.Get(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &GetItemOutput{Body: itemResponse(item)}, nil
}

type UpdateItemInput struct {
	ID   string `path:"id" doc:"Item ID"`
	Body struct {
		MinBatch *int  `json:"min_batch,omitempty" minimum:"0" doc:"Per-item batch floor; 0 reverts to the configured default"`
		Active   *bool `json:"active,omitempty" doc:"Whether the item is forecast"`
	}
}

type UpdateItemOutput struct {
	Body ItemResponse
}

func (s *Server) handleUpdateItem(ctx context.Context, input *UpdateItemInput) (*UpdateItemOutput, error) {
	item, err := s.services.Item.Update(ctx, input.ID, service.UpdateItemParams{
		MinBatch: input.Body.MinBatch,
		Active:   input.Body.Active,
	})
	if err != nil {
		return nil, err
	}
	return &UpdateItemOutput{Body: itemResponse(item)}, nil
}

type ListItemAliasesInput struct {
	ID string `path:"id" doc:"Item ID"`
}

type ListItemAliasesOutput struct {
	Body struct {
		Aliases []string `json:"aliases" doc:"Normalized raw names mapped to this item"`
	}
}

func (s *Server) handleListItemAliases(ctx context.Context, input *ListItemAliasesInput) (*ListItemAliasesOutput, error) {
	aliases, err := s.services.Item.Aliases(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	out := &ListItemAliasesOutput{}
	out.Body.Aliases = aliases
	return out, nil
}

type AddItemAliasInput struct {
	ID   string `path:"id" doc:"Item ID"`
	Body struct {
		Alias string `json:"alias" minLength:"1" doc:"Raw export name to map onto this item"`
	}
}

type AddItemAliasOutput struct {
	Body struct {
		Message string `json:"message" doc:"Success message"`
	}
}

func (s *Server) handleAddItemAlias(ctx context.Context, input *AddItemAliasInput) (*AddItemAliasOutput, error) {
	if err := s.services.Item.AddAlias(ctx, input.ID, input.Body.Alias); err != nil {
		return nil, err
	}
	out := &AddItemAliasOutput{}
	out.Body.Message = "alias added"
	return out, nil
}

type MergeItemsInput struct {
	Body struct {
		SourceID string `json:"source_id" minLength:"1" doc:"Item to fold in; it is deleted"`
		TargetID string `json:"target_id" minLength:"1" doc:"Item that receives the history"`
	}
}

type MergeItemsOutput struct {
	Body ItemResponse
}

func (s *Server) handleMergeItems(ctx context.Context, input *MergeItemsInput) (*MergeItemsOutput, error) {
	target, err := s.services.Item.Merge(ctx, input.Body.SourceID, input.Body.TargetID)
	if err != nil {
		return nil, err
	}
	return &MergeItemsOutput{Body: itemResponse(target)}, nil
}

// WeekdayBaselineResponse is one weekday's baseline estimate.
type WeekdayBaselineResponse struct {
	Day      string  `json:"day" doc:"Production weekday"`
	Estimate float64 `json:"estimate" doc:"Recency-weighted mean quantity"`
	Samples  int     `json:"samples" doc:"Same-weekday observations used"`
	Fallback bool    `json:"fallback,omitempty" doc:"True when the item-wide mean was used"`
	Mean     float64 `json:"mean" doc:"Unweighted trailing mean"`
	StdDev   float64 `json:"std_dev" doc:"Trailing standard deviation"`
}

type GetItemBaselineInput struct {
	ID string `path:"id" doc:"Item ID"`
}

type GetItemBaselineOutput struct {
	Body struct {
		ItemID   string                    `json:"item_id" doc:"Item ID"`
		ItemName string                    `json:"item_name" doc:"Item name"`
		Days     []WeekdayBaselineResponse `json:"days" doc:"Per-weekday baselines, Monday first"`
	}
}

func (s *Server) handleGetItemBaseline(ctx context.Context, input *GetItemBaselineInput) (*GetItemBaselineOutput, error) {
	b, err := s.services.Item.Baseline(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	out := &GetItemBaselineOutput{}
	out.Body.ItemID = b.ItemID
	out.Body.ItemName = b.ItemName
	out.Body.Days = make([]WeekdayBaselineResponse, 0, domain.DaysPerWeek)
	for day := domain.Monday; day <= domain.Saturday; day++ {
		out.Body.Days = append(out.Body.Days, WeekdayBaselineResponse{
			Day:      day.String(),
			Estimate: b.Baselines[day].Estimate,
			Samples:  b.Baselines[day].Samples,
			Fallback: b.Baselines[day].Fallback,
			Mean:     b.Stats[day].Mean,
			StdDev:   b.Stats[day].StdDev,
		})
	}
	return out, nil
}
