package usecase

import (
	"strings"

	"help-assistant/internal/domain"
)

// maxKnowledgeMatches caps how many articles are folded into one prompt.
const maxKnowledgeMatches = 3

// accessLevelsFor returns the access-level tags visible to a role. Staff
// roles see a strictly wider set than regular members.
func accessLevelsFor(role string) map[string]bool {
	if domain.PrivilegedRole(role) {
		return map[string]bool{"all": true, "admin": true, "board": true}
	}
	return map[string]bool{"all": true}
}

// matchKnowledge filters published articles down to at most
// maxKnowledgeMatches whose title or body contains the user message,
// case-insensitively, and whose access level is visible to the caller's
// role. Store order is preserved; an empty result is a valid state.
func matchKnowledge(articles []domain.KnowledgeArticle, query, role string) []domain.KnowledgeArticle {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil
	}
	visible := accessLevelsFor(role)

	var matches []domain.KnowledgeArticle
	for _, a := range articles {
		if !a.Published || !visible[a.AccessLevel] {
			continue
		}
		if strings.Contains(strings.ToLower(a.Title), query) ||
			strings.Contains(strings.ToLower(a.Content), query) {
			matches = append(matches, a)
			if len(matches) == maxKnowledgeMatches {
				break
			}
		}
	}
	return matches
}

// articleRefs converts matched articles to the citation refs persisted in
// assistant-message metadata.
func articleRefs(articles []domain.KnowledgeArticle) []domain.ArticleRef {
	if len(articles) == 0 {
		return nil
	}
	refs := make([]domain.ArticleRef, 0, len(articles))
	for _, a := range articles {
		refs = append(refs, domain.ArticleRef{ID: a.ID, Title: a.Title})
	}
	return refs
}
