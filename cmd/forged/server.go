package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/seqforge/taskkit/internal/auth"
	"github.com/seqforge/taskkit/internal/bridge"
	"github.com/seqforge/taskkit/internal/metainfo"
	"github.com/seqforge/taskkit/internal/observability"
)

var startedAt = time.Now()

func newRouter(st *store, tokens auth.Validator) *gin.Engine {
	r := gin.New()

	// Middleware: keep it lean
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(log.Logger))
	r.Use(observability.RequestMetricsMiddleware("forged"))
	r.Use(cors.New(cors.Config{
		AllowOrigins: []string{"http://localhost:3000"},
		AllowMethods: []string{"GET", "POST"},
		AllowHeaders: []string{"Origin", "Content-Type", bridge.TokenHeader},
		MaxAge:       12 * time.Hour,
	}))

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(startedAt).String(),
			"service": "forged",
			"version": "0.0.1",
		})
	})

	api := r.Group("/", checkToken(tokens))
	api.POST("/files", handleCreate(st))
	api.POST("/invoke", handleInvoke(st))
	api.POST("/get", handleGet(st))
	api.POST("/put", handlePut(st))
	api.POST("/set_format", handleSetFormat(st))
	api.POST("/download", handleDownload(st))
	api.POST("/dataindex", handleDataIndex(st))
	return r
}

func checkToken(tokens auth.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := tokens.Validate(c.GetHeader(bridge.TokenHeader)); err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "bad task token"})
			return
		}
		c.Next()
	}
}

func ok(c *gin.Context, result any) {
	c.JSON(http.StatusCreated, gin.H{"result": result})
}

func fail(c *gin.Context, format string, args ...any) {
	c.JSON(http.StatusCreated, gin.H{"error": fmt.Sprintf(format, args...)})
}

type objectRequest struct {
	ObjectID int64  `json:"object_id"`
	Kind     string `json:"kind"`
}

// tagObject marks the request with the object it touches so the request log
// can report which file a bridge call served.
func tagObject(c *gin.Context, id int64) {
	c.Set(observability.ObjectIDKey, id)
}

func handleCreate(st *store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Kind string            `json:"kind"`
			Meta metainfo.Metainfo `json:"metainfo"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, "bad request: %v", err)
			return
		}
		obj := st.create(req.Kind, req.Meta)
		tagObject(c, obj.ID)
		ok(c, gin.H{"object_id": obj.ID, "kind": obj.Kind})
	}
}

func handleInvoke(st *store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			objectRequest
			Method string            `json:"method"`
			Args   []json.RawMessage `json:"args"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, "bad request: %v", err)
			return
		}
		tagObject(c, req.ObjectID)
		c.Set(observability.MethodKey, req.Method)

		found := st.withObject(req.ObjectID, func(obj *object) {
			switch req.Method {
			case "getMetainfo":
				ok(c, gin.H{"data": obj.Meta})
			case "addMetainfoValue", "replaceMetainfoValue":
				key, value, err := keyAndValue(req.Args)
				if err != nil {
					fail(c, "%s: %v", req.Method, err)
					return
				}
				if req.Method == "addMetainfoValue" {
					obj.Meta.Add(key, value)
				} else {
					obj.Meta.Replace(key, value)
				}
				ok(c, nil)
			case "removeMetainfoValue":
				key, err := stringArg(req.Args, 0)
				if err != nil {
					fail(c, "removeMetainfoValue: %v", err)
					return
				}
				obj.Meta.Remove(key)
				ok(c, nil)
			case "resolveReference":
				accession, err := stringArg(req.Args, 0)
				if err != nil {
					fail(c, "resolveReference: %v", err)
					return
				}
				target, found := st.byAccessionLocked(accession)
				if !found {
					fail(c, "cannot resolve reference %q", accession)
					return
				}
				ok(c, gin.H{"object_id": target.ID, "kind": target.Kind})
			default:
				fail(c, "unknown method %q", req.Method)
			}
		})
		if !found {
			fail(c, "no such object: %d", req.ObjectID)
		}
	}
}

func keyAndValue(args []json.RawMessage) (string, metainfo.Value, error) {
	key, err := stringArg(args, 0)
	if err != nil {
		return "", nil, err
	}
	if len(args) < 2 {
		return "", nil, fmt.Errorf("missing value argument")
	}
	value, err := metainfo.DecodeValue(args[1])
	if err != nil {
		return "", nil, err
	}
	return key, value, nil
}

func stringArg(args []json.RawMessage, i int) (string, error) {
	if i >= len(args) {
		return "", fmt.Errorf("missing argument %d", i)
	}
	var s string
	if err := json.Unmarshal(args[i], &s); err != nil {
		return "", fmt.Errorf("argument %d is not a string: %w", i, err)
	}
	return s, nil
}

func handleGet(st *store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			objectRequest
			Key        string `json:"key"`
			WorkingDir string `json:"working_dir"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, "bad request: %v", err)
			return
		}
		tagObject(c, req.ObjectID)
		found := st.withObject(req.ObjectID, func(obj *object) {
			units, stored := obj.Storage[req.Key]
			if !stored {
				fail(c, "no data stored under %q", req.Key)
				return
			}
			// Dev backend keeps stored paths as-is instead of copying into
			// the working directory.
			ok(c, units)
		})
		if !found {
			fail(c, "no such object: %d", req.ObjectID)
		}
	}
}

func handlePut(st *store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			objectRequest
			Key      string               `json:"key"`
			Storages []bridge.StorageUnit `json:"storages"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, "bad request: %v", err)
			return
		}
		tagObject(c, req.ObjectID)
		found := st.withObject(req.ObjectID, func(obj *object) {
			obj.Storage[req.Key] = req.Storages
			ok(c, nil)
		})
		if !found {
			fail(c, "no such object: %d", req.ObjectID)
		}
	}
}

func handleSetFormat(st *store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			objectRequest
			Key      string               `json:"key"`
			Storages []bridge.StorageUnit `json:"storages"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, "bad request: %v", err)
			return
		}
		tagObject(c, req.ObjectID)
		var missingKey bool
		found := st.withObject(req.ObjectID, func(obj *object) {
			stored, has := obj.Storage[req.Key]
			if !has {
				missingKey = true
				return
			}
			for i := range stored {
				if i < len(req.Storages) {
					stored[i].Format = req.Storages[i].Format
				}
			}
		})
		if !found {
			fail(c, "no such object: %d", req.ObjectID)
			return
		}
		if missingKey {
			fail(c, "no data stored under %q", req.Key)
			return
		}
		ok(c, nil)
	}
}

func handleDownload(st *store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			objectRequest
			bridge.DownloadRequest
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, "bad request: %v", err)
			return
		}
		tagObject(c, req.ObjectID)

		// Snapshot the links under the lock, fetch outside it.
		var links []metainfo.ExternalLink
		found := st.withObject(req.ObjectID, func(obj *object) {
			for _, v := range obj.Meta.List(req.LinksKey) {
				if link, isLink := v.(metainfo.ExternalLink); isLink {
					links = append(links, link)
				}
			}
		})
		if !found {
			fail(c, "no such object: %d", req.ObjectID)
			return
		}

		var fetched []string
		var units []bridge.StorageUnit
		for _, link := range links {
			start := time.Now()
			path, err := fetchLink(link.URL, req.WorkingDir)
			scheme, _, _ := strings.Cut(link.URL, ":")
			observability.RecordLinkDownload("forged", scheme, time.Since(start), err == nil)
			if err != nil {
				fail(c, "download %s: %v", link.URL, err)
				return
			}
			fetched = append(fetched, path)
			units = append(units, bridge.StorageUnit{Files: []string{path}, Format: link.Format})
		}
		if req.PutToStorage {
			if req.Fold {
				var all []string
				for _, u := range units {
					all = append(all, u.Files...)
				}
				units = []bridge.StorageUnit{{Files: all}}
			}
			st.withObject(req.ObjectID, func(obj *object) {
				obj.Storage[req.StorageKey] = units
			})
		}
		ok(c, gin.H{"files": fetched})
	}
}

// fetchLink understands http and https only; the production backend handles
// the remaining schemes through dedicated downloaders.
func fetchLink(url, dir string) (string, error) {
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return "", fmt.Errorf("scheme not supported by the dev backend")
	}
	resp, err := http.Get(url)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("got status %d", resp.StatusCode)
	}

	name := filepath.Base(strings.TrimRight(url, "/"))
	if name == "" || name == "." || name == "/" {
		name = "download"
	}
	if dir == "" {
		dir = "."
	}
	path := filepath.Join(dir, name)
	out, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer out.Close()
	if _, err := io.Copy(out, resp.Body); err != nil {
		return "", err
	}
	return path, nil
}

func handleDataIndex(st *store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			objectRequest
			Values []map[string]any `json:"values"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, "bad request: %v", err)
			return
		}
		tagObject(c, req.ObjectID)
		found := st.withObject(req.ObjectID, func(obj *object) {
			obj.Index = append(obj.Index, req.Values...)
			ok(c, gin.H{"indexed": len(obj.Index)})
		})
		if !found {
			fail(c, "no such object: %d", req.ObjectID)
		}
	}
}
