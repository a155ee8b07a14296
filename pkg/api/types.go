/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/carverauto/devping/pkg/auth"
	"github.com/carverauto/devping/pkg/devices"
	"github.com/carverauto/devping/pkg/logger"
	"github.com/carverauto/devping/pkg/models"
	"github.com/carverauto/devping/pkg/ping"
)

// APIServer serves the device ping API.
type APIServer struct {
	router         *mux.Router
	corsConfig     models.CORSConfig
	pingService    ping.Service
	deviceRegistry devices.Registry
	authenticator  auth.Authenticator
	logger         logger.Logger
	requestTimeout time.Duration
	version        string

	mu       sync.Mutex
	server   *http.Server
	shutdown bool
}
