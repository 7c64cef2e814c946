package usecase

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"help-assistant/internal/domain"
)

func article(id, title, content, access string, published bool) domain.KnowledgeArticle {
	return domain.KnowledgeArticle{
		ID:          id,
		Title:       title,
		Content:     content,
		AccessLevel: access,
		Published:   published,
	}
}

func TestMatchKnowledge_AccessLevelFiltering(t *testing.T) {
	articles := []domain.KnowledgeArticle{
		article("a1", "Volunteer basics", "Getting started.", "all", true),
		article("a2", "Volunteer admin playbook", "Staff-only steps.", "admin", true),
		article("a3", "Board volunteer policy", "Board material.", "board", true),
	}

	regular := matchKnowledge(articles, "volunteer", "regular")
	require.Len(t, regular, 1)
	require.Equal(t, "a1", regular[0].ID)

	staff := matchKnowledge(articles, "volunteer", "admin")
	require.Len(t, staff, 3)
}

func TestMatchKnowledge_PrivilegedArticleNeverLeaksToRegular(t *testing.T) {
	articles := []domain.KnowledgeArticle{
		article("a2", "Payment reconciliation", "payment payment payment", "admin", true),
	}
	require.Empty(t, matchKnowledge(articles, "payment", "regular"))
	require.Len(t, matchKnowledge(articles, "payment", "board"), 1)
}

func TestMatchKnowledge_UnpublishedExcluded(t *testing.T) {
	articles := []domain.KnowledgeArticle{
		article("a1", "Volunteer draft", "draft body", "all", false),
	}
	require.Empty(t, matchKnowledge(articles, "volunteer", "regular"))
}

func TestMatchKnowledge_CaseInsensitiveTitleAndBody(t *testing.T) {
	articles := []domain.KnowledgeArticle{
		article("a1", "VOLUNTEER Waivers", "All about waivers.", "all", true),
		article("a2", "Hours tracking", "How to log VOLUNTEER hours.", "all", true),
		article("a3", "Event points", "Nothing relevant.", "all", true),
	}
	got := matchKnowledge(articles, "Volunteer", "regular")
	require.Len(t, got, 2)
	require.Equal(t, "a1", got[0].ID)
	require.Equal(t, "a2", got[1].ID)
}

func TestMatchKnowledge_CapsAtThreeInStoreOrder(t *testing.T) {
	var articles []domain.KnowledgeArticle
	for i := 0; i < 6; i++ {
		id := fmt.Sprintf("a%d", i)
		articles = append(articles, article(id, "Volunteer "+id, "body", "all", true))
	}
	got := matchKnowledge(articles, "volunteer", "regular")
	require.Len(t, got, maxKnowledgeMatches)
	require.Equal(t, "a0", got[0].ID)
	require.Equal(t, "a2", got[2].ID)
}

func TestMatchKnowledge_NoMatchIsEmptyNotError(t *testing.T) {
	articles := []domain.KnowledgeArticle{
		article("a1", "Volunteer basics", "Getting started.", "all", true),
	}
	require.Empty(t, matchKnowledge(articles, "parking", "regular"))
	require.Empty(t, matchKnowledge(articles, "  ", "regular"))
	require.Empty(t, matchKnowledge(nil, "volunteer", "regular"))
}

func TestArticleRefs(t *testing.T) {
	require.Nil(t, articleRefs(nil))
	refs := articleRefs([]domain.KnowledgeArticle{
		article("a1", "Volunteer basics", "x", "all", true),
	})
	require.Equal(t, []domain.ArticleRef{{ID: "a1", Title: "Volunteer basics"}}, refs)
}
