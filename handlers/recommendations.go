// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/danielhkuo/prepsense/cache"
	"github.com/danielhkuo/prepsense/clients"
	"github.com/danielhkuo/prepsense/cliparse"
	"github.com/danielhkuo/prepsense/instructions"
	"github.com/danielhkuo/prepsense/middleware"
	"github.com/danielhkuo/prepsense/models"
	"github.com/danielhkuo/prepsense/recommend"
	"github.com/danielhkuo/prepsense/units"
)

// Recommendation defaults
const (
	DefaultRecommendations = 10
	DefaultExternalResults = 10
	MaxExternalResults     = 50
)

// RecipeSearcher finds external recipes by ingredient and fetches their
// details
type RecipeSearcher interface {
	SearchByIngredients(ctx context.Context, ingredients []string, number int) ([]models.ExternalRecipe, error)
	RecipeInformation(ctx context.Context, id int) (*models.Recipe, error)
}

// IdeaSuggester generates recipe ideas from pantry contents
type IdeaSuggester interface {
	SuggestRecipes(ctx context.Context, pantry []string, n int) ([]models.RecipeIdea, error)
}

type RecommendHandler struct {
	db       *sql.DB
	cfg      cliparse.Config
	conv     *units.Converter
	cache    *cache.Manager
	searcher RecipeSearcher
	ideas    IdeaSuggester
	now      func() time.Time
}

// NewRecommendHandler builds the handler. searcher and ideas may be nil,
// in which case their endpoints answer 503.
func NewRecommendHandler(db *sql.DB, cfg cliparse.Config, conv *units.Converter, c *cache.Manager, searcher RecipeSearcher, ideas IdeaSuggester) *RecommendHandler {
	if conv == nil {
		conv = units.NewConverter()
	}
	return &RecommendHandler{
		db:       db,
		cfg:      cfg,
		conv:     conv,
		cache:    c,
		searcher: searcher,
		ideas:    ideas,
		now:      time.Now,
	}
}

func (h *RecommendHandler) options() recommend.Options {
	opts := recommend.Options{Converter: h.conv}
	if h.cfg.ExpiringWithinDays > 0 {
		opts.ExpiringWithin = time.Duration(h.cfg.ExpiringWithinDays) * 24 * time.Hour
	}
	return opts
}

// Recommendations handles GET /recommendations
// Ranks stored recipes against the caller's pantry. Results are cached
// per user until the pantry changes or the TTL runs out.
func (h *RecommendHandler) Recommendations(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	limit, err := intParam(r, "limit", DefaultRecommendations)
	if err != nil || limit < 1 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "limit must be a positive integer")
		return
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	minScore := 0.0
	if s := r.URL.Query().Get("min_score"); s != "" {
		minScore, err = strconv.ParseFloat(s, 64)
		if err != nil || minScore < 0 {
			middleware.ErrorResponse(w, http.StatusBadRequest, "min_score must be a non-negative number")
			return
		}
	}

	compute := func(ctx context.Context) (any, error) {
		pantry, err := loadPantry(ctx, h.db, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to load pantry: %w", err)
		}
		recipes, err := loadAllRecipes(ctx, h.db)
		if err != nil {
			return nil, fmt.Errorf("failed to load recipes: %w", err)
		}
		opts := h.options()
		opts.Limit = limit
		opts.MinScore = minScore
		return models.RecommendationsResponse{
			Matches:     recommend.Rank(pantry, recipes, h.now(), opts),
			PantryCount: len(pantry),
		}, nil
	}

	var resp models.RecommendationsResponse
	if h.cache == nil {
		v, err := compute(r.Context())
		if err != nil {
			slog.Error("failed to compute recommendations", "user_id", userID, "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		resp = v.(models.RecommendationsResponse)
	} else {
		key := fmt.Sprintf("%s%d:%g", recommendationsPrefix(userID), limit, minScore)
		cached, err := h.cache.GetOrCompute(r.Context(), key, 0, &resp, compute)
		if err != nil {
			slog.Error("failed to compute recommendations", "user_id", userID, "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		resp.Cached = cached
	}
	if resp.Matches == nil {
		resp.Matches = []models.RecipeMatch{}
	}

	middleware.JSONResponse(w, http.StatusOK, resp)
}

// pantryNames returns the distinct usable pantry ingredient names,
// expiring items first.
func (h *RecommendHandler) pantryNames(ctx context.Context, userID string) ([]string, error) {
	pantry, err := queryPantry(ctx, h.db, `
		SELECT `+pantryColumns+`
		FROM pantry_items
		WHERE user_id = $1 AND quantity > 0 AND (expiration_date IS NULL OR expiration_date >= $2)
		ORDER BY expiration_date ASC NULLS LAST, name ASC
	`, userID, today())
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	names := []string{}
	for _, p := range pantry {
		n := units.NormalizeIngredient(p.Name)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		names = append(names, n)
	}
	return names, nil
}

// upstreamError maps a provider error to a response
func upstreamError(w http.ResponseWriter, provider string, err error) {
	switch {
	case errors.Is(err, clients.ErrNotConfigured):
		middleware.ErrorResponse(w, http.StatusServiceUnavailable, provider+" is not configured")
	case errors.Is(err, clients.ErrRateLimited):
		middleware.ErrorResponse(w, http.StatusServiceUnavailable, provider+" rate limit reached")
	case errors.Is(err, clients.ErrNotFound):
		middleware.ErrorResponse(w, http.StatusNotFound, "Recipe not found")
	default:
		slog.Error("upstream request failed", "provider", provider, "error", err)
		middleware.ErrorResponse(w, http.StatusBadGateway, provider+" request failed")
	}
}

// External handles GET /recommendations/external
// Searches Spoonacular with the caller's pantry. Responses are cached by
// ingredient set, so users with the same pantry share them.
func (h *RecommendHandler) External(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	if h.searcher == nil {
		middleware.ErrorResponse(w, http.StatusServiceUnavailable, "spoonacular is not configured")
		return
	}
	number, err := intParam(r, "number", DefaultExternalResults)
	if err != nil || number < 1 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "number must be a positive integer")
		return
	}
	if number > MaxExternalResults {
		number = MaxExternalResults
	}

	names, err := h.pantryNames(r.Context(), userID)
	if err != nil {
		slog.Error("failed to query pantry", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if len(names) == 0 {
		middleware.JSONResponse(w, http.StatusOK, models.ExternalRecipesResponse{Recipes: []models.ExternalRecipe{}})
		return
	}

	compute := func(ctx context.Context) (any, error) {
		return h.searcher.SearchByIngredients(ctx, names, number)
	}

	var (
		recipes []models.ExternalRecipe
		cached  bool
	)
	if h.cache == nil {
		recipes, err = h.searcher.SearchByIngredients(r.Context(), names, number)
	} else {
		cached, err = h.cache.GetOrCompute(r.Context(), externalKey(names, number), 0, &recipes, compute)
	}
	if err != nil {
		upstreamError(w, "spoonacular", err)
		return
	}
	if recipes == nil {
		recipes = []models.ExternalRecipe{}
	}

	middleware.JSONResponse(w, http.StatusOK, models.ExternalRecipesResponse{Recipes: recipes, Cached: cached})
}

// ExternalDetail handles GET /recommendations/external/{id}
// Fetches one Spoonacular recipe with normalized ingredients and grouped
// instructions (?max_groups=, 1-3). Details are cached by recipe ID.
func (h *RecommendHandler) ExternalDetail(w http.ResponseWriter, r *http.Request) {
	if h.searcher == nil {
		middleware.ErrorResponse(w, http.StatusServiceUnavailable, "spoonacular is not configured")
		return
	}
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id < 1 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "id must be a positive integer")
		return
	}
	maxGroups, err := intParam(r, "max_groups", instructions.MaxGroups)
	if err != nil || maxGroups < 1 || maxGroups > instructions.MaxGroups {
		middleware.ErrorResponse(w, http.StatusBadRequest, "max_groups must be between 1 and 3")
		return
	}

	var rec models.Recipe
	if h.cache == nil {
		var got *models.Recipe
		got, err = h.searcher.RecipeInformation(r.Context(), id)
		if got != nil {
			rec = *got
		}
	} else {
		key := fmt.Sprintf("ext:%s:recipe:%d", clients.SourceSpoonacular, id)
		_, err = h.cache.GetOrCompute(r.Context(), key, 0, &rec, func(ctx context.Context) (any, error) {
			return h.searcher.RecipeInformation(ctx, id)
		})
	}
	if err != nil {
		upstreamError(w, "spoonacular", err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.RecipeDetail{
		Recipe: rec,
		Groups: instructions.ParseToGroups(rec.Instructions, maxGroups),
	})
}

// externalKey is order-independent in the ingredient list
func externalKey(names []string, number int) string {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)
	sum := sha256.Sum256([]byte(strings.Join(sorted, "\n")))
	return fmt.Sprintf("ext:%s:%s:%d", clients.SourceSpoonacular, hex.EncodeToString(sum[:12]), number)
}

// AISuggest handles POST /recommendations/ai
// Body is optional: {"count": n}
func (h *RecommendHandler) AISuggest(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	if h.ideas == nil {
		middleware.ErrorResponse(w, http.StatusServiceUnavailable, "openai is not configured")
		return
	}

	var req models.AISuggestRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil && !errors.Is(err, io.EOF) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Count == 0 {
		req.Count = clients.DefaultIdeas
	}
	if req.Count < 1 || req.Count > clients.MaxIdeas {
		middleware.ErrorResponse(w, http.StatusBadRequest, fmt.Sprintf("count must be between 1 and %d", clients.MaxIdeas))
		return
	}

	names, err := h.pantryNames(r.Context(), userID)
	if err != nil {
		slog.Error("failed to query pantry", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if len(names) == 0 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "pantry is empty")
		return
	}

	ideas, err := h.ideas.SuggestRecipes(r.Context(), names, req.Count)
	if err != nil {
		upstreamError(w, "openai", err)
		return
	}

	slog.Info("ai ideas generated", "user_id", userID, "ideas", len(ideas))

	middleware.JSONResponse(w, http.StatusOK, models.AISuggestResponse{Ideas: ideas, Pantry: names})
}
