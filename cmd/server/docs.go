// Package main Ronchon API
//
//	@title						Ronchon API
//	@version					1.0
//	@description				Chat proxy with daily quotas and premium entitlements
//	@termsOfService				https://ronchon.com/conditions
//
//	@contact.name				Ronchon
//	@contact.url				https://ronchon.com
//
//	@license.name				Proprietary
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Admin bearer token. Format: "Bearer {token}"
//
//	@tag.name					Chat
//	@tag.description			Messages and quota status
//
//	@tag.name					License
//	@tag.description			License key validation
//
//	@tag.name					Billing
//	@tag.description			Checkout, billing portal and Stripe webhooks
//
//	@tag.name					Admin
//	@tag.description			Operator entitlement management
package main
