// internal/services/server_service.go
package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/PabloB07/mcshop/internal/models"
	"github.com/PabloB07/mcshop/internal/utils"
)

type ServerService struct {
	db           *gorm.DB
	auditService *AuditService
}

type RegisterServerRequest struct {
	Name       string `json:"name" validate:"required,min=3,max=100"`
	Host       string `json:"host" validate:"required,hostname|ip"`
	Port       int    `json:"port" validate:"omitempty,min=1,max=65535"`
	WebhookURL string `json:"webhook_url,omitempty" validate:"omitempty,url"`
	RconHost   string `json:"rcon_host,omitempty"`
	RconPort   int    `json:"rcon_port,omitempty" validate:"omitempty,min=1,max=65535"`
}

type UpdateServerRequest struct {
	Name       string `json:"name,omitempty" validate:"omitempty,min=3,max=100"`
	Host       string `json:"host,omitempty" validate:"omitempty,hostname|ip"`
	Port       int    `json:"port,omitempty" validate:"omitempty,min=1,max=65535"`
	WebhookURL string `json:"webhook_url,omitempty" validate:"omitempty,url"`
	Active     *bool  `json:"active,omitempty"`
}

// RegisteredServer is the one response that carries the API secret in
// cleartext. It is returned exactly once, at registration.
type RegisteredServer struct {
	Server    *models.MinecraftServer `json:"server"`
	APISecret string                  `json:"api_secret"`
}

func NewServerService(db *gorm.DB, auditService *AuditService) *ServerService {
	return &ServerService{
		db:           db,
		auditService: auditService,
	}
}

func (s *ServerService) RegisterServer(adminID uuid.UUID, req *RegisterServerRequest) (*RegisteredServer, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	apiKey, err := utils.GenerateServerAPIKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate API key: %w", err)
	}
	apiSecret, err := utils.GenerateServerAPISecret()
	if err != nil {
		return nil, fmt.Errorf("failed to generate API secret: %w", err)
	}

	port := req.Port
	if port == 0 {
		port = 25565
	}

	server := &models.MinecraftServer{
		Name:       req.Name,
		Host:       req.Host,
		Port:       port,
		APIKey:     apiKey,
		APISecret:  apiSecret,
		WebhookURL: req.WebhookURL,
		RconHost:   req.RconHost,
		RconPort:   req.RconPort,
		Active:     true,
	}

	if err := s.db.Create(server).Error; err != nil {
		return nil, fmt.Errorf("failed to register server: %w", err)
	}

	s.auditService.Log(&adminID, models.AuditActionServerCreated, "minecraft_server", &server.ID, models.JSONB{
		"name": server.Name,
		"host": server.Host,
	})

	return &RegisteredServer{
		Server:    server,
		APISecret: apiSecret,
	}, nil
}

func (s *ServerService) GetServer(serverID uuid.UUID) (*models.MinecraftServer, error) {
	var server models.MinecraftServer
	if err := s.db.First(&server, serverID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &server, nil
}

// GetServerByAPIKey resolves an active server for the plugin auth gate. Any
// miss, including an inactive server, looks identical to the caller.
func (s *ServerService) GetServerByAPIKey(apiKey string) (*models.MinecraftServer, error) {
	var server models.MinecraftServer
	err := s.db.Where("api_key = ? AND active = ?", apiKey, true).First(&server).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAuthentication
		}
		return nil, err
	}
	return &server, nil
}

func (s *ServerService) ListServers(params utils.PaginationParams) (*utils.PaginationResult, error) {
	query := s.db.Model(&models.MinecraftServer{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var servers []models.MinecraftServer
	query = utils.ApplySort(query, params, []string{"created_at", "name"})
	query = utils.ApplyPagination(query, params)

	if err := query.Find(&servers).Error; err != nil {
		return nil, err
	}

	result := utils.CreatePaginationResult(servers, total, params)
	return &result, nil
}

func (s *ServerService) UpdateServer(serverID uuid.UUID, req *UpdateServerRequest) (*models.MinecraftServer, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	server, err := s.GetServer(serverID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Name != "" {
		updates["name"] = req.Name
	}
	if req.Host != "" {
		updates["host"] = req.Host
	}
	if req.Port != 0 {
		updates["port"] = req.Port
	}
	if req.WebhookURL != "" {
		updates["webhook_url"] = req.WebhookURL
	}
	if req.Active != nil {
		updates["active"] = *req.Active
	}

	if len(updates) > 0 {
		if err := s.db.Model(server).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to update server: %w", err)
		}
	}

	return server, nil
}

// RotateServerSecret replaces the server's HMAC key. As with registration, the
// new secret is shown once and never retrievable afterwards.
func (s *ServerService) RotateServerSecret(adminID, serverID uuid.UUID) (*RegisteredServer, error) {
	server, err := s.GetServer(serverID)
	if err != nil {
		return nil, err
	}

	apiSecret, err := utils.GenerateServerAPISecret()
	if err != nil {
		return nil, fmt.Errorf("failed to generate API secret: %w", err)
	}

	if err := s.db.Model(server).Update("api_secret", apiSecret).Error; err != nil {
		return nil, fmt.Errorf("failed to rotate server secret: %w", err)
	}

	s.auditService.Log(&adminID, models.AuditActionAdminAction, "minecraft_server", &server.ID, models.JSONB{
		"operation": "rotate_secret",
	})

	return &RegisteredServer{
		Server:    server,
		APISecret: apiSecret,
	}, nil
}
