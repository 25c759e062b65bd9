package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/arsip-biak-api/internal/dto"
	"github.com/noah-isme/arsip-biak-api/internal/models"
	appErrors "github.com/noah-isme/arsip-biak-api/pkg/errors"
)

type mockHierarchyRepo struct {
	nodes       map[int64]*models.HierarchyNode
	parents     map[int64]bool
	children    map[int64]bool
	nextID      int64
	lastCreated *models.HierarchyNode
}

func (m *mockHierarchyRepo) List(ctx context.Context, desc models.LevelDescriptor) ([]models.HierarchyNodeDetail, error) {
	out := make([]models.HierarchyNodeDetail, 0, len(m.nodes))
	for _, n := range m.nodes {
		out = append(out, models.HierarchyNodeDetail{HierarchyNode: *n})
	}
	return out, nil
}

func (m *mockHierarchyRepo) ListByParent(ctx context.Context, desc models.LevelDescriptor, parentID int64) ([]models.HierarchyNodeDetail, error) {
	var out []models.HierarchyNodeDetail
	for _, n := range m.nodes {
		if n.ParentID != nil && *n.ParentID == parentID {
			out = append(out, models.HierarchyNodeDetail{HierarchyNode: *n})
		}
	}
	return out, nil
}

func (m *mockHierarchyRepo) FindByID(ctx context.Context, desc models.LevelDescriptor, id int64) (*models.HierarchyNode, error) {
	node, ok := m.nodes[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return node, nil
}

func (m *mockHierarchyRepo) ParentExists(ctx context.Context, desc models.LevelDescriptor, parentID int64) (bool, error) {
	return m.parents[parentID], nil
}

func (m *mockHierarchyRepo) HasChildren(ctx context.Context, desc models.LevelDescriptor, id int64) (bool, error) {
	return m.children[id], nil
}

func (m *mockHierarchyRepo) Create(ctx context.Context, desc models.LevelDescriptor, node *models.HierarchyNode) error {
	m.nextID++
	node.ID = m.nextID
	if m.nodes == nil {
		m.nodes = make(map[int64]*models.HierarchyNode)
	}
	m.nodes[node.ID] = node
	m.lastCreated = node
	return nil
}

func (m *mockHierarchyRepo) Update(ctx context.Context, desc models.LevelDescriptor, node *models.HierarchyNode) error {
	if _, ok := m.nodes[node.ID]; !ok {
		return sql.ErrNoRows
	}
	m.nodes[node.ID] = node
	return nil
}

func (m *mockHierarchyRepo) Delete(ctx context.Context, desc models.LevelDescriptor, id int64) error {
	if _, ok := m.nodes[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.nodes, id)
	return nil
}

func newHierarchyService(repo *mockHierarchyRepo) *HierarchyService {
	return NewHierarchyService(repo, &mockAudit{}, validator.New(), zap.NewNop())
}

func mustDescriptor(t *testing.T, level models.HierarchyLevel) models.LevelDescriptor {
	t.Helper()
	desc, ok := models.DescriptorFor(level)
	require.True(t, ok)
	return desc
}

func TestHierarchyServiceDescriptorUnknown(t *testing.T) {
	svc := newHierarchyService(&mockHierarchyRepo{})

	_, err := svc.Descriptor("drawers")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestHierarchyServiceCreateRoot(t *testing.T) {
	repo := &mockHierarchyRepo{}
	svc := newHierarchyService(repo)

	node, err := svc.Create(context.Background(), mustDescriptor(t, models.LevelCategory), dto.HierarchyNodeRequest{Name: "Akademik"}, adminClaims())
	require.NoError(t, err)
	assert.Equal(t, "Akademik", node.Name)
	assert.Nil(t, node.ParentID)
}

func TestHierarchyServiceCreateChildRequiresParent(t *testing.T) {
	svc := newHierarchyService(&mockHierarchyRepo{})

	_, err := svc.Create(context.Background(), mustDescriptor(t, models.LevelShelf), dto.HierarchyNodeRequest{Name: "Rak A"}, adminClaims())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestHierarchyServiceCreateChildMissingParent(t *testing.T) {
	repo := &mockHierarchyRepo{parents: map[int64]bool{}}
	svc := newHierarchyService(repo)

	parentID := int64(42)
	_, err := svc.Create(context.Background(), mustDescriptor(t, models.LevelShelf), dto.HierarchyNodeRequest{Name: "Rak A", ParentID: &parentID}, adminClaims())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestHierarchyServiceCreateChildWithParent(t *testing.T) {
	parentID := int64(3)
	repo := &mockHierarchyRepo{parents: map[int64]bool{parentID: true}}
	svc := newHierarchyService(repo)

	node, err := svc.Create(context.Background(), mustDescriptor(t, models.LevelShelf), dto.HierarchyNodeRequest{Name: "Rak A", ParentID: &parentID}, adminClaims())
	require.NoError(t, err)
	require.NotNil(t, node.ParentID)
	assert.Equal(t, parentID, *node.ParentID)
}

func TestHierarchyServiceUpdateKeepsParent(t *testing.T) {
	parentID := int64(3)
	repo := &mockHierarchyRepo{
		parents: map[int64]bool{parentID: true},
		nodes:   map[int64]*models.HierarchyNode{7: {ID: 7, Name: "Rak A", ParentID: &parentID}},
	}
	svc := newHierarchyService(repo)

	node, err := svc.Update(context.Background(), mustDescriptor(t, models.LevelShelf), 7, dto.HierarchyNodeRequest{Name: "Rak B"}, adminClaims())
	require.NoError(t, err)
	assert.Equal(t, "Rak B", node.Name)
	require.NotNil(t, node.ParentID)
	assert.Equal(t, parentID, *node.ParentID)
}

func TestHierarchyServiceDeleteBlockedByChildren(t *testing.T) {
	repo := &mockHierarchyRepo{
		nodes:    map[int64]*models.HierarchyNode{7: {ID: 7, Name: "Lemari 1"}},
		children: map[int64]bool{7: true},
	}
	svc := newHierarchyService(repo)

	err := svc.Delete(context.Background(), mustDescriptor(t, models.LevelCabinet), 7, adminClaims())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrHasChildren.Code, appErrors.FromError(err).Code)
	assert.Contains(t, repo.nodes, int64(7))
}

func TestHierarchyServiceDeleteMissing(t *testing.T) {
	svc := newHierarchyService(&mockHierarchyRepo{})

	err := svc.Delete(context.Background(), mustDescriptor(t, models.LevelPosition), 99, adminClaims())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestHierarchyServiceMutationsRequireAdmin(t *testing.T) {
	svc := newHierarchyService(&mockHierarchyRepo{})
	staff := &models.JWTClaims{UserID: "u-2", Role: models.RoleStaff}

	_, err := svc.Create(context.Background(), mustDescriptor(t, models.LevelCategory), dto.HierarchyNodeRequest{Name: "X"}, staff)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	err = svc.Delete(context.Background(), mustDescriptor(t, models.LevelCategory), 1, staff)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}
