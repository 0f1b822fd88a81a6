// Package config loads the runtime configuration of autogmail.
//
// Values are layered, later layers winning:
//
//  1. built-in defaults (Default)
//  2. an optional YAML file (--config)
//  3. an optional .env file (LoadDotEnv), which only fills unset variables
//  4. environment variables (AUTOGMAIL_API_URL, AUTOGMAIL_PUBLIC_URL, ...)
//  5. command line flags, applied by the cmd package when explicitly set
//
// The backend base URL itself is not computed here. Config only carries the
// override and the site origin; endpoint.Resolver turns them into the base URL.
//
// Example YAML:
//
//	api:
//	  url: https://api.example.com
//	  timeout: 30s
//	site:
//	  addr: :8080
//	  public_url: https://autogmail.example.com
//	  demo_fallback: true
//	token_store:
//	  type: redis
//	  redis:
//	    url: redis://localhost:6379/0
//	log:
//	  level: info
//	  format: json
package config
