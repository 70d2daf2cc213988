package receipt

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/zombor/pantry-tracker/internal/extraction"
)

var _ = Describe("Server", func() {
	var (
		db          *mockDB
		storage     *mockStorage
		recognizer  *mockRecognizer
		parser      *mockParser
		dict        *mockDictation
		committer   *mockCommitter
		auth        BasicAuth
		server      *Server
		ghttpServer *ghttp.Server
	)

	// do routes exactly one request through the server under test
	do := func(method, path, contentType string, body io.Reader) *http.Response {
		ghttpServer.AppendHandlers(server.ServeHTTP)
		req, err := http.NewRequest(method, ghttpServer.URL()+path, body)
		Expect(err).NotTo(HaveOccurred())
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		if auth.Username != "" {
			req.SetBasicAuth(auth.Username, auth.Password)
		}
		resp, err := http.DefaultClient.Do(req)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(resp.Body.Close)
		return resp
	}

	doJSON := func(method, path string, v any) *http.Response {
		body, err := json.Marshal(v)
		Expect(err).NotTo(HaveOccurred())
		return do(method, path, "application/json", bytes.NewReader(body))
	}

	decode := func(resp *http.Response, v any) {
		Expect(json.NewDecoder(resp.Body).Decode(v)).To(Succeed())
	}

	upload := func(files map[string]string) (*bytes.Buffer, string) {
		var b bytes.Buffer
		writer := multipart.NewWriter(&b)
		for name, content := range files {
			part, err := writer.CreateFormFile("file", name)
			Expect(err).NotTo(HaveOccurred())
			_, err = part.Write([]byte(content))
			Expect(err).NotTo(HaveOccurred())
		}
		Expect(writer.Close()).To(Succeed())
		return &b, writer.FormDataContentType()
	}

	BeforeEach(func() {
		db = newMockDB()
		storage = newMockStorage()
		recognizer = &mockRecognizer{texts: []string{"KROGER\nMILK 3.49"}}
		parser = &mockParser{result: parsedResult("Milk")}
		dict = &mockDictation{}
		committer = &mockCommitter{}
		auth = BasicAuth{}
	})

	JustBeforeEach(func() {
		service := NewServiceWithDeps(db, recognizer, storage, Options{
			Parser:      parser,
			Dictation:   dict,
			Categorizer: mockCategorizer{},
			Committer:   committer,
		}, &sequentialIDs{}, &fixedTime{now: time.Date(2025, 10, 5, 12, 0, 0, 0, time.UTC)})
		server = NewServerWithMux(service, auth, http.NewServeMux())
		ghttpServer = ghttp.NewServer()
	})

	AfterEach(func() {
		ghttpServer.Close()
	})

	Describe("POST /api/receipts", func() {
		It("processes the uploaded image", func() {
			body, contentType := upload(map[string]string{"receipt.jpg": "jpeg"})
			resp := do("POST", "/api/receipts", contentType, body)
			Expect(resp.StatusCode).To(Equal(http.StatusCreated))

			var run Run
			decode(resp, &run)
			Expect(run.ID).To(Equal("run-1"))
			Expect(run.Result.Items).To(HaveLen(1))
			Expect(run.Images).To(Equal([]StoredImage{{Filename: "run-1_0_receipt.jpg", ContentType: "image/jpeg"}}))
		})

		It("accepts several images as one run", func() {
			body, contentType := upload(map[string]string{"a.png": "a", "b.pdf": "b"})
			resp := do("POST", "/api/receipts", contentType, body)
			Expect(resp.StatusCode).To(Equal(http.StatusCreated))

			var run Run
			decode(resp, &run)
			Expect(run.Images).To(HaveLen(2))
			Expect(recognizer.calls).To(Equal(2))
		})

		It("rejects a form without files", func() {
			body, contentType := upload(nil)
			resp := do("POST", "/api/receipts", contentType, body)
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("rejects a malformed form", func() {
			resp := do("POST", "/api/receipts", "multipart/form-data", strings.NewReader("invalid"))
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		When("no items are found", func() {
			BeforeEach(func() {
				parser.result = parsedResult()
			})

			It("returns 422 with the fallback modes", func() {
				body, contentType := upload(map[string]string{"receipt.jpg": "jpeg"})
				resp := do("POST", "/api/receipts", contentType, body)
				Expect(resp.StatusCode).To(Equal(http.StatusUnprocessableEntity))

				var out map[string]any
				decode(resp, &out)
				Expect(out["fallback"]).To(ConsistOf("dictation", "manual"))
			})
		})

		When("the recognizer fails", func() {
			BeforeEach(func() {
				recognizer.err = errors.New("quota exceeded")
			})

			It("returns 502 with the fallback modes", func() {
				body, contentType := upload(map[string]string{"receipt.jpg": "jpeg"})
				resp := do("POST", "/api/receipts", contentType, body)
				Expect(resp.StatusCode).To(Equal(http.StatusBadGateway))

				var out map[string]any
				decode(resp, &out)
				Expect(out["fallback"]).To(ConsistOf("dictation", "manual"))
			})
		})
	})

	Describe("POST /api/receipts/text", func() {
		It("processes the text", func() {
			resp := doJSON("POST", "/api/receipts/text", map[string]string{"text": "MILK 3.49"})
			Expect(resp.StatusCode).To(Equal(http.StatusCreated))
			Expect(parser.text).To(Equal("MILK 3.49"))
		})

		It("rejects empty text", func() {
			resp := doJSON("POST", "/api/receipts/text", map[string]string{"text": ""})
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("rejects an invalid body", func() {
			resp := do("POST", "/api/receipts/text", "application/json", strings.NewReader("{"))
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("POST /api/dictation", func() {
		BeforeEach(func() {
			dict.items = []extraction.ManualItem{{Name: "milk", Quantity: 1, Confidence: extraction.DictationConfidence}}
		})

		It("processes a transcript", func() {
			resp := doJSON("POST", "/api/dictation", map[string]string{"transcript": "milk"})
			Expect(resp.StatusCode).To(Equal(http.StatusCreated))

			var run Run
			decode(resp, &run)
			Expect(run.Source).To(Equal(SourceDictation))
			Expect(run.Text).To(Equal("milk"))
		})

		It("keeps only final segments", func() {
			resp := doJSON("POST", "/api/dictation", map[string]any{
				"segments": []map[string]any{
					{"text": "mil", "final": false},
					{"text": "milk", "final": true},
					{"text": "two eggs", "final": true},
				},
			})
			Expect(resp.StatusCode).To(Equal(http.StatusCreated))

			var run Run
			decode(resp, &run)
			Expect(run.Text).To(Equal("milk, two eggs"))
		})

		When("nothing parses", func() {
			BeforeEach(func() {
				dict.items = nil
			})

			It("returns 422", func() {
				resp := doJSON("POST", "/api/dictation", map[string]string{"transcript": "um"})
				Expect(resp.StatusCode).To(Equal(http.StatusUnprocessableEntity))
			})
		})
	})

	Describe("POST /api/manual", func() {
		It("records the items", func() {
			resp := doJSON("POST", "/api/manual", map[string]any{
				"items": []map[string]any{{"name": "Bread", "quantity": 1, "price": "2.99"}},
			})
			Expect(resp.StatusCode).To(Equal(http.StatusCreated))

			var run Run
			decode(resp, &run)
			Expect(run.Result.Items[0].Confidence).To(Equal(100))
			Expect(run.Result.Items[0].Category).To(Equal("bakery"))
		})

		It("rejects an item without a name", func() {
			resp := doJSON("POST", "/api/manual", map[string]any{
				"items": []map[string]any{{"quantity": 1}},
			})
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("runs", func() {
		var runID string

		JustBeforeEach(func() {
			body, contentType := upload(map[string]string{"receipt.png": "png bytes"})
			resp := do("POST", "/api/receipts", contentType, body)
			Expect(resp.StatusCode).To(Equal(http.StatusCreated))
			var run Run
			decode(resp, &run)
			runID = run.ID
		})

		It("lists runs", func() {
			resp := do("GET", "/api/runs", "", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var runs []Run
			decode(resp, &runs)
			Expect(runs).To(HaveLen(1))
		})

		It("gets a run", func() {
			resp := do("GET", "/api/runs/"+runID, "", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
		})

		It("returns 404 for an unknown run", func() {
			resp := do("GET", "/api/runs/missing", "", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})

		It("serves a run image", func() {
			resp := do("GET", "/api/runs/"+runID+"/images/0", "", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Header.Get("Content-Type")).To(Equal("image/png"))
			data, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(Equal("png bytes"))
		})

		It("rejects a non-numeric image index", func() {
			resp := do("GET", "/api/runs/"+runID+"/images/first", "", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("returns 404 for a missing image", func() {
			resp := do("GET", "/api/runs/"+runID+"/images/3", "", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})

		It("deletes a run", func() {
			resp := do("DELETE", "/api/runs/"+runID, "", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
			Expect(db.runs).To(BeEmpty())
		})

		It("stores reviewed items", func() {
			resp := doJSON("PUT", "/api/runs/"+runID+"/review", map[string]any{
				"items": []map[string]any{{"name": "Oat Milk", "quantity": 2, "price": "4.29"}},
			})
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var run Run
			decode(resp, &run)
			Expect(run.ReviewItems).To(HaveLen(1))
			Expect(run.Result.Items[0].Name).To(Equal("Milk"))
		})

		It("rejects committing a review with no items", func() {
			resp := doJSON("PUT", "/api/runs/"+runID+"/review", map[string]any{"items": []any{}})
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			resp = do("POST", "/api/runs/"+runID+"/commit", "", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			Expect(committer.commits).To(BeEmpty())
		})

		It("commits once", func() {
			resp := do("POST", "/api/runs/"+runID+"/commit", "", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(committer.commits).To(HaveLen(1))

			resp = do("POST", "/api/runs/"+runID+"/commit", "", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusConflict))
			Expect(committer.commits).To(HaveLen(1))
		})
	})

	Describe("CORS", func() {
		It("answers preflight requests", func() {
			resp := do("OPTIONS", "/api/runs", "", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
			Expect(resp.Header.Get("Access-Control-Allow-Methods")).To(ContainSubstring("PUT"))
		})

		It("sets headers on normal responses", func() {
			resp := do("GET", "/api/runs", "", nil)
			Expect(resp.Header.Get("Access-Control-Allow-Origin")).To(Equal("*"))
		})
	})

	Describe("basic auth", func() {
		When("credentials are configured", func() {
			BeforeEach(func() {
				auth = BasicAuth{Username: "user", Password: "pass"}
			})

			It("accepts valid credentials", func() {
				resp := do("GET", "/api/runs", "", nil)
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
			})

			It("rejects missing credentials", func() {
				ghttpServer.AppendHandlers(server.ServeHTTP)
				resp, err := http.Get(ghttpServer.URL() + "/api/runs")
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
				Expect(resp.Header.Get("WWW-Authenticate")).To(ContainSubstring("Pantry Tracker"))
			})

			It("rejects wrong credentials", func() {
				ghttpServer.AppendHandlers(server.ServeHTTP)
				req, err := http.NewRequest("GET", ghttpServer.URL()+"/api/runs", nil)
				Expect(err).NotTo(HaveOccurred())
				req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte("user:wrong")))
				resp, err := http.DefaultClient.Do(req)
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
			})
		})
	})
})
