package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"fashion-studio/common/logger"
	"fashion-studio/conf"
	"fashion-studio/database"
	"fashion-studio/model"
	"fashion-studio/service/generation_service"
	"fashion-studio/service/persist_service"
	"fashion-studio/service/storage_service"
	"fashion-studio/storage"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var pngBytes = []byte("\x89PNG\r\n\x1a\nfake")

type fakeGenerator struct {
	imageErr     error
	videoErr     error
	lastPrompt   string
	lastAspect   string
	lastModel    string
	lastTextOpts generation_service.TextOptions
}

func (g *fakeGenerator) GenerateImage(ctx context.Context, prompt, aspectRatio, model string) ([]byte, error) {
	g.lastPrompt, g.lastAspect, g.lastModel = prompt, aspectRatio, model
	return pngBytes, g.imageErr
}

func (g *fakeGenerator) EditImage(ctx context.Context, image []byte, mimeType, prompt, model string) ([]byte, error) {
	g.lastPrompt, g.lastModel = prompt, model
	return pngBytes, nil
}

func (g *fakeGenerator) TryOn(ctx context.Context, person, garment []byte, category string) ([]byte, error) {
	return []byte("jpeg"), nil
}

func (g *fakeGenerator) GenerateVideo(ctx context.Context, job *model.GenerationJob) ([]byte, error) {
	if g.videoErr != nil {
		return nil, g.videoErr
	}
	return []byte("mp4"), nil
}

func (g *fakeGenerator) GenerateText(ctx context.Context, prompt string, opts generation_service.TextOptions) (string, error) {
	g.lastTextOpts = opts
	return "generated text", nil
}

// failingStore rejects every upload like an unreachable bucket.
type failingStore struct {
	storage.ObjectStore
}

func (failingStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	return "", errors.New("bucket unreachable")
}

type testServer struct {
	engine  *gin.Engine
	backend storage_service.Backend
	persist *persist_service.Orchestrator
	dead    *persist_service.DeadLetterLog
	gen     *fakeGenerator
}

func testConfig(t *testing.T) *conf.Config {
	return &conf.Config{
		Project:       "fashion-studio-test",
		MaxUploadSize: 8 << 20,
		Storage: conf.StorageConfig{
			Backend: "local",
			Local: conf.LocalStorageConfig{
				MediaRoot:     t.TempDir(),
				DataDir:       t.TempDir(),
				PublicBaseURL: "http://localhost:8000",
				UID:           "local-user",
			},
		},
		GenAI: conf.GenAIConfig{ImageModel: "img-model", EditModel: "edit-model", TryOnModel: "vto-model", VideoModel: "veo"},
	}
}

func newTestServer(t *testing.T, cfg *conf.Config, backend storage_service.Backend) *testServer {
	t.Helper()
	if backend == nil {
		var err error
		backend, err = storage_service.NewBackend(context.Background(), cfg, logger.Nop())
		if err != nil {
			t.Fatalf("NewBackend failed: %v", err)
		}
	}
	dead, err := persist_service.NewDeadLetterLog(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	orch := persist_service.NewOrchestrator(backend, dead, persist_service.Config{Workers: 2, QueueSize: 16}, logger.Nop())
	t.Cleanup(func() {
		orch.Shutdown(context.Background())
		backend.Close()
	})
	gen := &fakeGenerator{}
	engine := SetupRouter(Dependencies{
		Config:      cfg,
		Backend:     backend,
		Generator:   gen,
		Persist:     orch,
		DeadLetters: dead,
		Log:         logger.Nop(),
	})
	return &testServer{engine: engine, backend: backend, persist: orch, dead: dead, gen: gen}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	req.Header.Set("Authorization", "Bearer test-token")
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func multipartRequest(t *testing.T, target string, fields map[string]string, files map[string][]byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	for name, data := range files {
		fw, err := mw.CreateFormFile(name, name+".png")
		if err != nil {
			t.Fatal(err)
		}
		fw.Write(data)
	}
	mw.Close()
	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

// waitForAsset polls the ledger until an asset of type appears.
func waitForAsset(t *testing.T, backend storage_service.Backend, uid string, typ model.AssetType) *model.Asset {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		assets, err := backend.GetAssetRecords(context.Background(), uid, model.AssetQuery{Type: typ})
		if err == nil && len(assets) > 0 {
			return assets[0]
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("No %s record appeared for %s", typ, uid)
	return nil
}

func decode(t *testing.T, w *httptest.ResponseRecorder, data interface{}) {
	t.Helper()
	var resp struct {
		Code    int             `json:"code"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Invalid JSON response %q: %v", w.Body.String(), err)
	}
	if data != nil {
		if err := json.Unmarshal(resp.Data, data); err != nil {
			t.Fatalf("Invalid data %s: %v", resp.Data, err)
		}
	}
}

func TestHealthIsPublic(t *testing.T) {
	s := newTestServer(t, testConfig(t), nil)
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "fashion-studio-test") {
		t.Errorf("Expected health response, got %d %s", w.Code, w.Body.String())
	}
}

func TestMissingTokenIsUnauthorized(t *testing.T) {
	s := newTestServer(t, testConfig(t), nil)
	req := multipartRequest(t, "/generate-image", map[string]string{"prompt": "red shoes"}, nil)
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", w.Code)
	}
	if s.gen.lastPrompt != "" {
		t.Errorf("Expected no generation before auth, got prompt %q", s.gen.lastPrompt)
	}
}

func TestGenerateImageEndToEnd(t *testing.T) {
	s := newTestServer(t, testConfig(t), nil)
	req := multipartRequest(t, "/generate-image", map[string]string{"prompt": "red shoes", "aspect_ratio": "4:3"}, nil)
	w := s.do(req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Expected image/png, got %s", ct)
	}
	if !bytes.Equal(w.Body.Bytes(), pngBytes) {
		t.Errorf("Expected generated bytes in body")
	}
	if s.gen.lastAspect != "4:3" {
		t.Errorf("Expected aspect ratio 4:3, got %s", s.gen.lastAspect)
	}

	asset := waitForAsset(t, s.backend, "local-user", model.AssetTypeGeneratedImage)
	if asset.Prompt != "red shoes" || asset.Source != model.SourceTextToImage {
		t.Errorf("Unexpected record: %+v", asset)
	}
	if asset.Category != model.CategoryUserGeneratedData || asset.Model != "img-model" {
		t.Errorf("Unexpected category/model: %s %s", asset.Category, asset.Model)
	}
	if !strings.HasPrefix(asset.URL, "http://localhost:8000/media/local-user/") {
		t.Errorf("Expected local media URL, got %s", asset.URL)
	}
}

func TestGenerateImageCloudUploadFailureFallsBack(t *testing.T) {
	cfg := testConfig(t)
	local, err := storage.NewLocalStorage(cfg.Storage.Local.MediaRoot, cfg.Storage.Local.PublicBaseURL)
	if err != nil {
		t.Fatal(err)
	}
	db, err := database.NewJSONDatabase(cfg.Storage.Local.DataDir)
	if err != nil {
		t.Fatal(err)
	}
	backend := storage_service.NewCloudBackend(failingStore{}, local, db,
		storage_service.NewStaticVerifier(model.Identity{UID: "cloud-user"}), logger.Nop())
	s := newTestServer(t, cfg, backend)

	w := s.do(multipartRequest(t, "/generate-image", map[string]string{"prompt": "red shoes"}, nil))
	if w.Code != http.StatusOK || !bytes.Equal(w.Body.Bytes(), pngBytes) {
		t.Fatalf("Expected 200 with media, got %d", w.Code)
	}

	asset := waitForAsset(t, backend, "cloud-user", model.AssetTypeGeneratedImage)
	if !strings.HasPrefix(asset.URL, "http://localhost:8000/media/cloud-user/") {
		t.Errorf("Expected local fallback URL, got %s", asset.URL)
	}

	// The fallback copy is served by the static route.
	path := strings.TrimPrefix(asset.URL, "http://localhost:8000")
	media := httptest.NewRecorder()
	s.engine.ServeHTTP(media, httptest.NewRequest(http.MethodGet, path, nil))
	if media.Code != http.StatusOK || !bytes.Equal(media.Body.Bytes(), pngBytes) {
		t.Errorf("Expected media served at %s, got %d", path, media.Code)
	}
	if entries, _ := s.dead.List(); len(entries) != 0 {
		t.Errorf("Expected no dead letters, got %d", len(entries))
	}
}

func TestGenerationErrorsMapToStatus(t *testing.T) {
	s := newTestServer(t, testConfig(t), nil)

	s.gen.imageErr = generation_service.ErrGenerationEmpty
	w := s.do(multipartRequest(t, "/generate-image", map[string]string{"prompt": "red shoes"}, nil))
	if w.Code != http.StatusInternalServerError || !strings.Contains(w.Body.String(), "no content generated") {
		t.Errorf("Expected 500 with upstream message, got %d %s", w.Code, w.Body.String())
	}

	s.gen.videoErr = generation_service.ErrTimeout
	w = s.do(multipartRequest(t, "/generate-video", map[string]string{"prompt": "walk"}, nil))
	if w.Code != http.StatusGatewayTimeout {
		t.Errorf("Expected 504, got %d", w.Code)
	}

	w = s.do(multipartRequest(t, "/generate-image", map[string]string{}, nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for missing prompt, got %d", w.Code)
	}
}

func TestEditTryOnAndVideoRecordProvenance(t *testing.T) {
	s := newTestServer(t, testConfig(t), nil)

	w := s.do(multipartRequest(t, "/edit-image", map[string]string{"prompt": "beach"}, map[string][]byte{"image": pngBytes}))
	if w.Code != http.StatusOK || w.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("edit-image: %d %s", w.Code, w.Header().Get("Content-Type"))
	}
	edited := waitForAsset(t, s.backend, "local-user", model.AssetTypeEditedImage)
	if edited.ParentFilename != "image.png" || edited.Source != model.SourceEditImageOutput {
		t.Errorf("Unexpected edited record: %+v", edited)
	}

	w = s.do(multipartRequest(t, "/try-on", nil, map[string][]byte{"person_image": pngBytes, "garment_image": pngBytes}))
	if w.Code != http.StatusOK || w.Header().Get("Content-Type") != "image/jpeg" {
		t.Fatalf("try-on: %d %s", w.Code, w.Header().Get("Content-Type"))
	}
	tryOn := waitForAsset(t, s.backend, "local-user", model.AssetTypeTryOnResult)
	if tryOn.PersonFilename != "person_image.png" || tryOn.GarmentFilename != "garment_image.png" {
		t.Errorf("Unexpected try-on record: %+v", tryOn)
	}
	if !strings.HasSuffix(tryOn.URL, ".jpg") {
		t.Errorf("Expected jpg key, got %s", tryOn.URL)
	}

	w = s.do(multipartRequest(t, "/generate-video", map[string]string{"prompt": "walk"}, map[string][]byte{"image": pngBytes}))
	if w.Code != http.StatusOK || w.Header().Get("Content-Type") != "video/mp4" {
		t.Fatalf("generate-video: %d %s", w.Code, w.Header().Get("Content-Type"))
	}
	video := waitForAsset(t, s.backend, "local-user", model.AssetTypeGeneratedVideo)
	if video.Source != model.SourceImageToVideo || video.InputImageFilename != "image.png" {
		t.Errorf("Unexpected video record: %+v", video)
	}
	if !strings.HasSuffix(video.URL, ".mp4") {
		t.Errorf("Expected mp4 key, got %s", video.URL)
	}
}

func TestVideoWithEmptyImageIsTextToVideo(t *testing.T) {
	s := newTestServer(t, testConfig(t), nil)

	w := s.do(multipartRequest(t, "/generate-video", map[string]string{"prompt": "walk"}, map[string][]byte{"image": {}}))
	if w.Code != http.StatusOK {
		t.Fatalf("generate-video: %d %s", w.Code, w.Body.String())
	}
	video := waitForAsset(t, s.backend, "local-user", model.AssetTypeGeneratedVideo)
	if video.Source != model.SourceTextToVideo || video.InputImageFilename != "" {
		t.Errorf("Expected text-to-video without input image, got %+v", video)
	}
}

func TestBlankModelUsesConfiguredDefault(t *testing.T) {
	s := newTestServer(t, testConfig(t), nil)

	w := s.do(multipartRequest(t, "/generate-image", map[string]string{"prompt": "coat", "model": " "}, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("generate-image: %d %s", w.Code, w.Body.String())
	}
	if s.gen.lastModel != "img-model" {
		t.Errorf("Expected img-model passed to generator, got %q", s.gen.lastModel)
	}
	generated := waitForAsset(t, s.backend, "local-user", model.AssetTypeGeneratedImage)
	if generated.Model != "img-model" {
		t.Errorf("Expected img-model recorded, got %q", generated.Model)
	}

	w = s.do(multipartRequest(t, "/edit-image", map[string]string{"prompt": "beach", "model": ""}, map[string][]byte{"image": pngBytes}))
	if w.Code != http.StatusOK {
		t.Fatalf("edit-image: %d %s", w.Code, w.Body.String())
	}
	edited := waitForAsset(t, s.backend, "local-user", model.AssetTypeEditedImage)
	if s.gen.lastModel != "edit-model" || edited.Model != "edit-model" {
		t.Errorf("Expected edit-model, got generator=%q record=%q", s.gen.lastModel, edited.Model)
	}
}

func TestGenerateTextOptions(t *testing.T) {
	s := newTestServer(t, testConfig(t), nil)
	w := s.do(multipartRequest(t, "/generate-text", map[string]string{"prompt": "describe", "top_k": "12", "temperature": "0.5"}, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d %s", w.Code, w.Body.String())
	}
	var data struct {
		Text string `json:"text"`
	}
	decode(t, w, &data)
	if data.Text != "generated text" {
		t.Errorf("Expected text, got %q", data.Text)
	}
	opts := s.gen.lastTextOpts
	if opts.TopK != 12 || opts.Temperature != 0.5 || opts.TopP != 0.95 || opts.MaxOutputTokens != 8192 {
		t.Errorf("Unexpected options: %+v", opts)
	}

	w = s.do(multipartRequest(t, "/generate-text", map[string]string{"prompt": "describe", "top_k": "many"}, nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad top_k, got %d", w.Code)
	}
}

func TestAssetCRUD(t *testing.T) {
	s := newTestServer(t, testConfig(t), nil)

	create := httptest.NewRequest(http.MethodPost, "/assets", strings.NewReader(`{"url":"https://cdn.example.com/a.png","type":"user-data"}`))
	create.Header.Set("Content-Type", "application/json")
	w := s.do(create)
	if w.Code != http.StatusOK {
		t.Fatalf("create: %d %s", w.Code, w.Body.String())
	}
	var created struct {
		ID string `json:"id"`
	}
	decode(t, w, &created)
	if created.ID == "" {
		t.Fatal("Expected an id")
	}

	update := httptest.NewRequest(http.MethodPut, "/assets/"+created.ID, strings.NewReader(`{"tags":["summer"," red ",""]}`))
	update.Header.Set("Content-Type", "application/json")
	if w := s.do(update); w.Code != http.StatusOK {
		t.Fatalf("update: %d %s", w.Code, w.Body.String())
	}

	w = s.do(httptest.NewRequest(http.MethodGet, "/assets?type=user-data&limit=5", nil))
	var list struct {
		Assets []struct {
			ID   string   `json:"id"`
			URL  string   `json:"url"`
			Tags []string `json:"tags"`
		} `json:"assets"`
	}
	decode(t, w, &list)
	if len(list.Assets) != 1 || list.Assets[0].URL != "https://cdn.example.com/a.png" {
		t.Fatalf("Unexpected list: %+v", list)
	}
	if strings.Join(list.Assets[0].Tags, ",") != "summer,red" {
		t.Errorf("Expected normalized tags, got %v", list.Assets[0].Tags)
	}

	missing := httptest.NewRequest(http.MethodPut, "/assets/nope", strings.NewReader(`{"tags":[]}`))
	missing.Header.Set("Content-Type", "application/json")
	if w := s.do(missing); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown id, got %d", w.Code)
	}

	if w := s.do(httptest.NewRequest(http.MethodDelete, "/assets/"+created.ID, nil)); w.Code != http.StatusOK {
		t.Errorf("delete: %d", w.Code)
	}
	if w := s.do(httptest.NewRequest(http.MethodDelete, "/assets/"+created.ID, nil)); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 on second delete, got %d", w.Code)
	}

	if w := s.do(httptest.NewRequest(http.MethodGet, "/assets?type=bogus", nil)); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for unknown type, got %d", w.Code)
	}
}

func TestUploadAsset(t *testing.T) {
	s := newTestServer(t, testConfig(t), nil)
	w := s.do(multipartRequest(t, "/assets/upload", map[string]string{"type": "user-data"}, map[string][]byte{"file": pngBytes}))
	if w.Code != http.StatusOK {
		t.Fatalf("upload: %d %s", w.Code, w.Body.String())
	}
	var created struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	}
	decode(t, w, &created)
	if created.ID == "" || !strings.HasPrefix(created.URL, "http://localhost:8000/media/local-user/") {
		t.Errorf("Unexpected upload response: %+v", created)
	}
	assets, _ := s.backend.GetAssetRecords(context.Background(), "local-user", model.AssetQuery{})
	if len(assets) != 1 || assets[0].Category != model.CategoryUserData {
		t.Errorf("Expected one user-data record, got %+v", assets)
	}
}

func TestDeadLettersEndpoint(t *testing.T) {
	s := newTestServer(t, testConfig(t), nil)
	s.dead.Record(&model.PersistFailure{UserID: "local-user", Stage: model.PersistStageLedger, Error: "db down"}, nil)
	s.dead.Record(&model.PersistFailure{
		UserID: "other-uid", Stage: model.PersistStageLedger, URL: "https://cdn/other/secret.png",
		Asset: model.Asset{ID: "x", Prompt: "other private prompt"},
	}, nil)

	w := s.do(httptest.NewRequest(http.MethodGet, "/admin/dead-letters", nil))
	if body := w.Body.String(); strings.Contains(body, "other-uid") || strings.Contains(body, "secret.png") || strings.Contains(body, "private prompt") {
		t.Errorf("Expected only the caller's entries, got %s", body)
	}
	var data struct {
		Total int `json:"total"`
	}
	decode(t, w, &data)
	if w.Code != http.StatusOK || data.Total != 1 {
		t.Errorf("Expected 1 dead letter, got %d (%d)", data.Total, w.Code)
	}
}

func TestProxyImageRelaysBytes(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/webp")
		w.Write([]byte("webp-bytes"))
	}))
	defer upstream.Close()

	s := newTestServer(t, testConfig(t), nil)
	w := s.do(httptest.NewRequest(http.MethodGet, "/proxy-image?url="+upstream.URL+"/x.webp", nil))
	if w.Code != http.StatusOK || w.Body.String() != "webp-bytes" || w.Header().Get("Content-Type") != "image/webp" {
		t.Errorf("Unexpected proxy response: %d %s %q", w.Code, w.Header().Get("Content-Type"), w.Body.String())
	}

	if w := s.do(httptest.NewRequest(http.MethodGet, "/proxy-image?url=file:///etc/passwd", nil)); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for non-http url, got %d", w.Code)
	}
}
