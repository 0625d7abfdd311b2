package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/starbank/recommender/internal/logger"
	"github.com/starbank/recommender/internal/ruleengine"
	"github.com/starbank/recommender/internal/store"
)

// handleCreateRule processes POST /rule.
//
// Structural validation runs on the DTO; arity and condition types are checked
// while mapping to the domain model, so a malformed rule never reaches the store.
func (a *API) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	var req CreateRuleRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("invalid json payload", slog.String("error", err.Error()))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{
			Code:    "ERR_INVALID_JSON",
			Message: "Invalid JSON payload: " + err.Error(),
		})
		return
	}

	req.Sanitize()
	if errResp := req.Validate(); errResp != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errResp)
		return
	}

	rule, errResp := mapCreateRequestToRule(&req)
	if errResp != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errResp)
		return
	}

	if err := a.rules.CreateRule(r.Context(), rule); err != nil {
		log.Error("failed to create rule in db", slog.String("error", err.Error()))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, ErrorResponse{
			Code:    "ERR_INTERNAL",
			Message: "Failed to create rule",
		})
		return
	}

	log.Info("rule created",
		slog.Int64("rule_id", rule.ID),
		slog.String("product_id", rule.ProductID),
		slog.Int("conditions", len(rule.Conditions)),
	)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, mapRuleToResponse(log, *rule))
}

// handleListRules processes GET /rule.
func (a *API) handleListRules(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	rules, err := a.rules.ListRulesWithConditions(r.Context())
	if err != nil {
		log.Error("failed to list rules from db", slog.String("error", err.Error()))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, ErrorResponse{
			Code:    "ERR_INTERNAL",
			Message: "Failed to list rules",
		})
		return
	}

	dtos := make([]Rule, len(rules))
	for i, rule := range rules {
		dtos[i] = mapRuleToResponse(log, rule)
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, ListResponse{Data: dtos})
}

// handleDeleteRule processes DELETE /rule/{id}.
func (a *API) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{
			Code:    "ERR_INVALID_INPUT",
			Message: "Rule id must be a positive integer",
		})
		return
	}

	if err := a.rules.DeleteRule(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrRuleNotFound) {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, ErrorResponse{
				Code:    "ERR_NOT_FOUND",
				Message: fmt.Sprintf("Rule %d not found", id),
			})
			return
		}

		log.Error("failed to delete rule", slog.Int64("rule_id", id), slog.String("error", err.Error()))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, ErrorResponse{
			Code:    "ERR_INTERNAL",
			Message: "Failed to delete rule",
		})
		return
	}

	log.Info("rule deleted", slog.Int64("rule_id", id))
	w.WriteHeader(http.StatusNoContent)
}

// handleRuleStats processes GET /rule/stats.
func (a *API) handleRuleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := a.recommender.RuleFireStats(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Error("failed to read rule stats", slog.String("error", err.Error()))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, ErrorResponse{
			Code:    "ERR_INTERNAL",
			Message: "Failed to read rule statistics",
		})
		return
	}

	resp := StatsResponse{Stats: make([]RuleStat, len(stats))}
	for i, s := range stats {
		resp.Stats[i] = RuleStat{RuleID: s.RuleID, Count: s.Count}
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, resp)
}

// --- Private Helpers ---

// mapCreateRequestToRule converts the DTO into the domain model, enforcing
// condition types and arity per condition.
func mapCreateRequestToRule(req *CreateRuleRequest) (*ruleengine.Rule, *ErrorResponse) {
	rule := &ruleengine.Rule{
		ProductName: req.ProductName,
		ProductID:   req.ProductID,
		ProductText: req.ProductText,
		Conditions:  make([]ruleengine.Condition, 0, len(req.Rule)),
	}

	var details []ErrorDetail
	for i, c := range req.Rule {
		typ, err := ruleengine.ParseConditionType(c.Query)
		if err != nil {
			details = append(details, ErrorDetail{
				Field: fmt.Sprintf("rule[%d].query", i),
				Issue: err.Error(),
			})
			continue
		}

		cond, err := ruleengine.NewCondition(typ, c.Arguments, c.Negate)
		if err != nil {
			details = append(details, ErrorDetail{
				Field: fmt.Sprintf("rule[%d].arguments", i),
				Issue: err.Error(),
			})
			continue
		}
		rule.Conditions = append(rule.Conditions, cond)
	}

	if len(details) > 0 {
		return nil, &ErrorResponse{
			Code:    "ERR_INVALID_INPUT",
			Message: "Invalid rule conditions",
			Details: details,
		}
	}
	return rule, nil
}

// mapRuleToResponse converts the domain model to the response DTO.
// Stored arguments that fail to decode are rendered as an empty list.
func mapRuleToResponse(log *slog.Logger, rule ruleengine.Rule) Rule {
	conds := make([]Condition, len(rule.Conditions))
	for i, c := range rule.Conditions {
		args, err := ruleengine.DecodeArguments(c.Arguments)
		if err != nil {
			log.Warn("stored condition has malformed arguments",
				slog.Int64("rule_id", rule.ID),
				slog.Int("position", i),
				slog.String("error", err.Error()),
			)
			args = []string{}
		}
		conds[i] = Condition{Query: string(c.Type), Arguments: args, Negate: c.Negate}
	}

	return Rule{
		ID:          rule.ID,
		ProductName: rule.ProductName,
		ProductID:   rule.ProductID,
		ProductText: rule.ProductText,
		Rule:        conds,
	}
}
