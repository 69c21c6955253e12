// Package docs provides generated OpenAPI documentation.
//
// Lumina API
//
//	@title			Lumina API
//	@version		1.0
//	@description	Turns PDF books into narrated chapters: upload, chapter segmentation, translation and speech synthesis.
//
//	@contact.name	API Support
//	@contact.url	https://github.com/jackzampolin/lumina
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host		localhost:8080
//	@BasePath	/
//
//	@schemes	http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
package docs

//go:generate swag init -g doc.go -d ./,../internal/server/endpoints,../internal/types -o ./ --outputTypes go --parseInternal
