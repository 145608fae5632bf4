// Hand-written mock of github.com/Lab700xOrg/aisbom/walker.ManifestParser.

package walker

import (
	context "context"
	reflect "reflect"

	gomock "go.uber.org/mock/gomock"

	aisbom "github.com/Lab700xOrg/aisbom"
)

// MockManifestParser is a mock of ManifestParser, in the same shape
// mockgen would generate for it (claircore's indexer/fetcher/scanner
// interfaces are all mocked this way).
type MockManifestParser struct {
	ctrl     *gomock.Controller
	recorder *MockManifestParserMockRecorder
}

type MockManifestParserMockRecorder struct {
	mock *MockManifestParser
}

func NewMockManifestParser(ctrl *gomock.Controller) *MockManifestParser {
	mock := &MockManifestParser{ctrl: ctrl}
	mock.recorder = &MockManifestParserMockRecorder{mock}
	return mock
}

func (m *MockManifestParser) EXPECT() *MockManifestParserMockRecorder {
	return m.recorder
}

func (m *MockManifestParser) ParseManifest(ctx context.Context, data []byte) ([]aisbom.DependencyRecord, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "ParseManifest", ctx, data)
	ret0, _ := ret[0].([]aisbom.DependencyRecord)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

func (mr *MockManifestParserMockRecorder) ParseManifest(ctx, data interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "ParseManifest", reflect.TypeOf((*MockManifestParser)(nil).ParseManifest), ctx, data)
}
