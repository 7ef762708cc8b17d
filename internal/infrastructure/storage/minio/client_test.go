package minio

import (
	"context"
	"errors"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/turtacn/SeqQuant/internal/config"
	pkgerrors "github.com/turtacn/SeqQuant/pkg/errors"
)

type ClientTestSuite struct {
	suite.Suite
	api    *MockMinIOAPI
	client *MinIOClient
}

func (s *ClientTestSuite) SetupTest() {
	s.api = new(MockMinIOAPI)
	s.client = NewMinIOClientFromAPI(s.api, "models", "us-east-1", nil)
}

func (s *ClientTestSuite) TearDownTest() {
	s.api.AssertExpectations(s.T())
}

func (s *ClientTestSuite) TestApplyDefaults() {
	cfg := config.MinIOConfig{}
	applyDefaults(&cfg)
	assert.Equal(s.T(), "us-east-1", cfg.Region)
	assert.Equal(s.T(), config.DefaultModelsBucket, cfg.ModelsBucket)
}

func (s *ClientTestSuite) TestEnsureBucket_Exists() {
	s.api.On("BucketExists", mock.Anything, "models").Return(true, nil)
	assert.NoError(s.T(), s.client.EnsureBucket(context.Background()))
}

func (s *ClientTestSuite) TestEnsureBucket_Creates() {
	s.api.On("BucketExists", mock.Anything, "models").Return(false, nil)
	s.api.On("MakeBucket", mock.Anything, "models", minio.MakeBucketOptions{Region: "us-east-1"}).Return(nil)
	assert.NoError(s.T(), s.client.EnsureBucket(context.Background()))
}

func (s *ClientTestSuite) TestEnsureBucket_CheckFails() {
	s.api.On("BucketExists", mock.Anything, "models").Return(false, errors.New("dial tcp"))
	err := s.client.EnsureBucket(context.Background())
	assert.True(s.T(), pkgerrors.IsCode(err, pkgerrors.ErrCodeStorageError))
}

func (s *ClientTestSuite) TestHealthCheck() {
	s.api.On("BucketExists", mock.Anything, "models").Return(false, nil).Once()
	assert.Error(s.T(), s.client.HealthCheck(context.Background()))

	s.api.On("BucketExists", mock.Anything, "models").Return(true, nil).Once()
	assert.NoError(s.T(), s.client.HealthCheck(context.Background()))
}

func (s *ClientTestSuite) TestClose() {
	assert.NoError(s.T(), s.client.Close())
	_, err := s.client.API()
	assert.Equal(s.T(), ErrMinIOClientClosed, err)
	assert.Equal(s.T(), ErrMinIOClientClosed, s.client.HealthCheck(context.Background()))
}

func TestClientTestSuite(t *testing.T) {
	suite.Run(t, new(ClientTestSuite))
}
