package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	httpHelper "github.com/Luzifer/go_helpers/v2/http"
	"github.com/Luzifer/rconfig/v2"
	"github.com/didip/tollbooth"
	"github.com/didip/tollbooth/limiter"
	"github.com/golang/geo/s2"
	"github.com/gorilla/mux"
	colorful "github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/Luzifer/storemap/internal/media"
	"github.com/Luzifer/storemap/internal/metrics"
	"github.com/Luzifer/storemap/internal/provider"
	"github.com/Luzifer/storemap/internal/storeconfig"
	"github.com/Luzifer/storemap/internal/storefront"
	"github.com/Luzifer/storemap/internal/valkeystore"
)

var (
	cfg struct {
		CacheBackend   string        `flag:"cache-backend" default:"filesystem" description:"Where to cache rendered maps (filesystem, valkey)"`
		CacheDir       string        `flag:"cache-dir" default:"cache" description:"Directory to save the cached images to"`
		ForceCache     time.Duration `flag:"force-cache" default:"24h" description:"Force map to be cached for this duration"`
		GoogleMapsURL  string        `flag:"google-maps-url" default:"" description:"Override the Google Static Maps API endpoint"`
		Listen         string        `flag:"listen" default:":3000" description:"IP/Port to listen on"`
		LogLevel       string        `flag:"log-level" default:"info" description:"Log level (debug, info, warn, error, fatal)"`
		MapboxURL      string        `flag:"mapbox-url" default:"" description:"Override the Mapbox API endpoint"`
		MaxSize        string        `flag:"max-size" default:"1024x1024" description:"Maximum map size requestable"`
		MediaDir       string        `flag:"media-dir" default:"media" description:"Directory holding the uploaded marker icons"`
		MediaURL       string        `flag:"media-url" default:"/media" description:"Public URL the media directory is reachable at"`
		NoAttribution  bool          `flag:"no-attribution" default:"false" description:"Hide the OSM attribution on self-hosted store maps"`
		RateLimit      float64       `flag:"rate-limit" default:"1" description:"How many requests to allow per time"`
		RateLimitTime  time.Duration `flag:"rate-limit-time" default:"1s" description:"Time interval to allow N requests in"`
		StoreConfig    string        `flag:"store-config" default:"" description:"YAML file holding the store view configuration (empty disables store pages)"`
		ValkeyAddr     string        `flag:"valkey-addr" default:"" description:"Valkey server for the map cache and remote media storage"`
		ValkeyPrefix   string        `flag:"valkey-prefix" default:"storemap:" description:"Key prefix used in Valkey"`
		VersionAndExit bool          `flag:"version" default:"false" description:"Print version information and exit"`
	}

	mapMaxX, mapMaxY int
	cacheFunc        cacheFunction = filesystemCache

	mapMetrics = metrics.New()
	storePage  *storefront.Page

	version = "dev"
)

func initApp() (err error) {
	rconfig.AutoEnv(true)
	if err = rconfig.ParseAndValidate(&cfg); err != nil {
		return errors.Wrap(err, "parsing CLI parameters")
	}

	l, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return errors.Wrap(err, "parsing log-level")
	}
	logrus.SetLevel(l)

	if mapMaxX, mapMaxY, err = parseSize(cfg.MaxSize); err != nil {
		return errors.Wrap(err, "parsing max-size")
	}

	return nil
}

func main() {
	var err error
	if err = initApp(); err != nil {
		logrus.WithError(err).Fatal("initializing app")
	}

	if cfg.VersionAndExit {
		fmt.Printf("storemap %s\n", version) //nolint:forbidigo
		return
	}

	var store *valkeystore.Store
	if cfg.ValkeyAddr != "" {
		if store, err = valkeystore.New(cfg.ValkeyAddr, cfg.ValkeyPrefix); err != nil {
			logrus.WithError(err).Fatal("connecting to valkey")
		}
		defer store.Close()
	}

	if cacheFunc, err = getCacheFunction(cfg.CacheBackend, store); err != nil {
		logrus.WithError(err).Fatal("initializing map cache")
	}

	if cfg.StoreConfig != "" {
		if storePage, err = loadStorePage(cfg.StoreConfig, store); err != nil {
			logrus.WithError(err).Fatal("loading store config")
		}
	}

	rateLimit := tollbooth.NewLimiter(cfg.RateLimit, &limiter.ExpirableOptions{
		DefaultExpirationTTL: cfg.RateLimitTime,
	})
	rateLimit.SetIPLookups([]string{"X-Forwarded-For", "RemoteAddr", "X-Real-IP"})

	server := &http.Server{
		Addr:              cfg.Listen,
		Handler:           httpHelper.NewHTTPLogHandlerWithLogger(newRouter(rateLimit), logrus.StandardLogger()),
		ReadHeaderTimeout: time.Second,
	}

	logrus.WithFields(logrus.Fields{
		"providers": newRegistry().IDs(),
		"version":   version,
	}).Info("storemap started")
	if err = server.ListenAndServe(); err != nil {
		logrus.WithError(err).Fatal("running HTTP server")
	}
}

func newRouter(rateLimit *limiter.Limiter) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/status", func(res http.ResponseWriter, r *http.Request) { http.Error(res, "I'm fine", http.StatusOK) })
	r.Handle("/metrics", mapMetrics.Handler())

	r.Handle("/map.png", tollbooth.LimitFuncHandler(rateLimit, handleMapRequest)).Methods("GET")
	r.Handle("/map.png", tollbooth.LimitFuncHandler(rateLimit, handlePostMapRequest)).Methods("POST")

	r.HandleFunc("/widget/render", handleWidgetRender).Methods("POST")
	if storePage != nil {
		r.HandleFunc("/store/{view}", handleStorePage).Methods("GET")
	}

	if strings.HasPrefix(cfg.MediaURL, "/") {
		prefix := strings.TrimRight(cfg.MediaURL, "/") + "/"
		r.PathPrefix(prefix).Handler(http.StripPrefix(prefix, http.FileServer(http.Dir(cfg.MediaDir))))
	}

	return r
}

// newRegistry creates the provider adapters with fresh SDK handles so
// concurrent requests never share an authorized access token
func newRegistry() *provider.Registry {
	return provider.DefaultRegistry(provider.SDKs{
		Google: &provider.GoogleSDK{BaseURL: cfg.GoogleMapsURL},
		Mapbox: &provider.MapboxSDK{BaseURL: cfg.MapboxURL},
		StaticMap: &provider.StaticMapSDK{
			Endpoint:           "/map.png",
			DisableAttribution: cfg.NoAttribution,
			Colors:             markerColorNames(),
		},
	})
}

func loadStorePage(filename string, remote *valkeystore.Store) (*storefront.Page, error) {
	stores, err := storeconfig.Load(filename)
	if err != nil {
		return nil, err
	}

	resolver := media.Resolver{Dir: cfg.MediaDir, BaseURL: cfg.MediaURL}
	if remote != nil {
		resolver.Remote = remote
	}

	for _, opt := range storeconfig.MapTypeOptions {
		if _, err = newRegistry().Resolve(opt.Value); err != nil {
			logrus.WithField("map_type", opt.Value).Warn("selectable map type has no provider")
		}
	}

	return &storefront.Page{Stores: stores, Media: resolver}, nil
}

func handleMapRequest(res http.ResponseWriter, r *http.Request) {
	var (
		err  error
		opts = generateMapConfig{
			DisableAttribution: r.URL.Query().Get("no-attribution") == "true",
		}
	)

	if c := r.URL.Query().Get("center"); c != "" {
		center, err := parseCoordinate(c)
		if err != nil {
			http.Error(res, fmt.Sprintf("Unable to parse 'center' parameter: %s", err), http.StatusBadRequest)
			return
		}
		opts.Center = &center
	}

	if z := r.URL.Query().Get("zoom"); z != "" {
		zoom, err := strconv.Atoi(z)
		if err != nil {
			http.Error(res, fmt.Sprintf("Unable to parse 'zoom' parameter: %s", err), http.StatusBadRequest)
			return
		}
		opts.Zoom = &zoom
	}

	if opts.Width, opts.Height, err = parseSize(r.URL.Query().Get("size")); err != nil {
		http.Error(res, fmt.Sprintf("Unable to parse 'size' parameter: %s", err), http.StatusBadRequest)
		return
	}

	if opts.Markers, err = parseMarkerLocations(r.URL.Query()["markers"]); err != nil {
		http.Error(res, fmt.Sprintf("Unable to parse 'markers' parameter: %s", err), http.StatusBadRequest)
		return
	}

	if err = opts.validate(); err != nil {
		http.Error(res, fmt.Sprintf("Unable to process input: %s", err), http.StatusBadRequest)
		return
	}

	serveMap(res, r, opts)
}

func handlePostMapRequest(res http.ResponseWriter, r *http.Request) {
	body := postMapEnvelope{}

	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(res, fmt.Sprintf("Unable to parse input: %s", err), http.StatusBadRequest)
		return
	}

	opts, err := body.toGenerateMapConfig()
	if err != nil {
		http.Error(res, fmt.Sprintf("Unable to process input: %s", err), http.StatusBadRequest)
		return
	}

	serveMap(res, r, opts)
}

func serveMap(res http.ResponseWriter, r *http.Request, opts generateMapConfig) {
	mapReader, err := cacheFunc(r.Context(), opts)
	if err != nil {
		logrus.Errorf("map render failed: %s (Request: %s)", err, r.URL.String())
		http.Error(res, fmt.Sprintf("I experienced difficulties rendering your map: %s", err), http.StatusInternalServerError)
		return
	}
	defer func() {
		if err := mapReader.Close(); err != nil {
			logrus.WithError(err).Error("closing map cache reader (leaked fd)")
		}
	}()

	res.Header().Set("Content-Type", "image/png")
	res.Header().Set("Cache-Control", "public")

	if _, err = io.Copy(res, mapReader); err != nil {
		logrus.WithError(err).Debug("writing image to HTTP client")
	}
}

func parseCoordinate(coord string) (s2.LatLng, error) {
	if coord == "" {
		return s2.LatLng{}, errors.New("No coordinate given")
	}

	parts := strings.Split(coord, ",")
	if len(parts) != 2 { //nolint:gomnd
		return s2.LatLng{}, errors.New("Coordinate not in format lat,lon")
	}

	var (
		lat, lon float64
		err      error
	)

	if lat, err = strconv.ParseFloat(parts[0], 64); err != nil {
		return s2.LatLng{}, errors.New("Latitude not parseable as float")
	}

	if lon, err = strconv.ParseFloat(parts[1], 64); err != nil {
		return s2.LatLng{}, errors.New("Longitude not parseable as float")
	}

	pt := s2.LatLngFromDegrees(lat, lon)
	if !pt.IsValid() {
		return s2.LatLng{}, errors.New("Coordinate out of range")
	}
	return pt, nil
}

func parseSize(size string) (x, y int, err error) {
	if size == "" {
		return 0, 0, errors.New("No size given")
	}

	parts := strings.Split(size, "x")
	if len(parts) != 2 { //nolint:gomnd
		return 0, 0, errors.New("Size not in format 600x300")
	}

	if x, err = strconv.Atoi(parts[0]); err != nil {
		return 0, 0, errors.Wrap(err, "parsing width")
	}

	if y, err = strconv.Atoi(parts[1]); err != nil {
		return 0, 0, errors.Wrap(err, "parsing height")
	}

	if x <= 0 || y <= 0 {
		return 0, 0, errors.New("size must be positive")
	}

	if (x > mapMaxX || y > mapMaxY) && mapMaxX > 0 && mapMaxY > 0 {
		return 0, 0, errors.Errorf("map size exceeds allowed bounds of %dx%d", mapMaxX, mapMaxY)
	}

	return x, y, nil
}

func parseMarkerLocations(markers []string) ([]marker, error) {
	if markers == nil {
		// No markers parameters passed, lets ignore this
		return nil, nil
	}

	result := []marker{}

	for _, markerInformation := range markers {
		parts := strings.Split(markerInformation, "|")

		var (
			size = markerSizes["small"]
			col  = markerColors["red"]
		)

		for _, p := range parts {
			switch {
			case strings.HasPrefix(p, "size:"):
				s, ok := markerSizes[strings.TrimPrefix(p, "size:")]
				if !ok {
					return nil, errors.Errorf("bad marker size %q", strings.TrimPrefix(p, "size:"))
				}
				size = s

			case strings.HasPrefix(p, "color:0x"):
				c, err := colorful.Hex("#" + strings.TrimPrefix(p, "color:0x"))
				if err != nil {
					return nil, errors.Wrapf(err, "parsing color %q", strings.TrimPrefix(p, "color:"))
				}
				col = c

			case strings.HasPrefix(p, "color:"):
				c, ok := markerColors[strings.TrimPrefix(p, "color:")]
				if !ok {
					return nil, errors.Errorf("bad color name %q", strings.TrimPrefix(p, "color:"))
				}
				col = c

			default:
				pos, err := parseCoordinate(p)
				if err != nil {
					return nil, errors.Errorf("unparsable chunk found in marker: %q", p)
				}
				result = append(result, marker{
					pos:   pos,
					color: col,
					size:  size,
				})
			}
		}
	}

	return result, nil
}
