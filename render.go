package main

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/Luzifer/storemap/internal/provider"
	"github.com/Luzifer/storemap/internal/storefront"
	"github.com/Luzifer/storemap/internal/widget"
)

const (
	failedContainersHeader = "X-Storemap-Failed-Containers"
	maxPageSize            = 2 << 20
)

func handleStorePage(res http.ResponseWriter, r *http.Request) {
	view := mux.Vars(r)["view"]

	page := *storePage
	page.Registry = newRegistry()
	page.Options = []widget.Option{widget.WithRecorder(mapMetrics)}

	buf := new(bytes.Buffer)
	failed, err := page.Render(r.Context(), buf, view)
	switch {
	case errors.Cause(err) == storefront.ErrUnknownView:
		http.NotFound(res, r)
		return

	case err != nil:
		logrus.WithError(err).WithField("view", view).Error("rendering store page")
		http.Error(res, "Unable to render store page", http.StatusInternalServerError)
		return
	}

	writePage(res, buf, failed, logrus.WithField("view", view))
}

func handleWidgetRender(res http.ResponseWriter, r *http.Request) {
	buf := new(bytes.Buffer)
	failed, err := widget.Render(
		r.Context(),
		newRegistry(),
		io.LimitReader(r.Body, maxPageSize),
		buf,
		widget.WithRecorder(mapMetrics),
	)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Cause(err) == provider.ErrUnknownProvider {
			status = http.StatusUnprocessableEntity
		}
		http.Error(res, fmt.Sprintf("Unable to render page: %s", err), status)
		return
	}

	writePage(res, buf, failed, logrus.NewEntry(logrus.StandardLogger()))
}

func writePage(res http.ResponseWriter, page io.Reader, failed []error, logger *logrus.Entry) {
	for _, err := range failed {
		logger.WithError(err).Warn("map container skipped")
	}

	res.Header().Set("Content-Type", "text/html; charset=utf-8")
	res.Header().Set(failedContainersHeader, strconv.Itoa(len(failed)))

	if _, err := io.Copy(res, page); err != nil {
		logrus.WithError(err).Debug("writing page to HTTP client")
	}
}
