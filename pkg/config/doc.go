// Package config loads application settings from a YAML file.
//
// Values not present in the file keep the defaults from [Default]. Environment
// references such as ${REDIS_URL} are expanded before decoding, so secrets can
// stay out of the file:
//
//	address: ":8080"
//	log:
//	  level: debug
//	  format: text
//	cache:
//	  enabled: true
//	  driver: redis
//	  ttl: 10m
//	  exclude: ^/admin
//	  redis:
//	    url: ${REDIS_URL}
//
// [Parse] and [Load] validate the result and report every problem at once,
// wrapped in [ErrInvalidConfig].
package config
