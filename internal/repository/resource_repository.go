package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"example.com/cloudpanel/internal/models"
)

// ResourceRepository provides data access for the opaque domain resources the
// correlator updates. Every entity exposes the same uniform contract the
// console's CRUD services rely on: save, update, delete, find, findAll.
type ResourceRepository interface {
	// VMInstance operations
	SaveVM(ctx context.Context, vm *models.VMInstance) error
	UpdateVM(ctx context.Context, vm *models.VMInstance) error
	FindVMByUUID(ctx context.Context, uuid string) (*models.VMInstance, error)
	ListVMs(ctx context.Context, departmentID uint, paging PagingAndSorting) (*Page[*models.VMInstance], error)

	// Volume operations
	SaveVolume(ctx context.Context, volume *models.Volume) error
	UpdateVolume(ctx context.Context, volume *models.Volume) error
	FindVolumeByUUID(ctx context.Context, uuid string) (*models.Volume, error)
	ListVolumes(ctx context.Context, departmentID uint, paging PagingAndSorting) (*Page[*models.Volume], error)

	// Network operations
	SaveNetwork(ctx context.Context, network *models.Network) error
	UpdateNetwork(ctx context.Context, network *models.Network) error
	FindNetworkByUUID(ctx context.Context, uuid string) (*models.Network, error)

	// NetworkOffering operations
	SaveNetworkOffering(ctx context.Context, offering *models.NetworkOffering) error
	UpdateNetworkOffering(ctx context.Context, offering *models.NetworkOffering) error
	FindNetworkOfferingByUUID(ctx context.Context, uuid string) (*models.NetworkOffering, error)

	// IPAddress operations
	FindIPAddressByUUID(ctx context.Context, uuid string) (*models.IPAddress, error)
	UpdateIPAddress(ctx context.Context, ip *models.IPAddress) error

	// Snapshot operations
	FindSnapshotByUUID(ctx context.Context, uuid string) (*models.Snapshot, error)
	UpdateSnapshot(ctx context.Context, snapshot *models.Snapshot) error

	// UpdateStateByTypeAndUUID resolves a resource by its platform type tag
	// and external id, then moves its state column. ErrNotFound signals an
	// unresolvable resource (correlation failure).
	UpdateStateByTypeAndUUID(ctx context.Context, resourceType, uuid string, state models.ResourceState) error
}

// resourceRepo implements ResourceRepository
type resourceRepo struct {
	db *gorm.DB
}

// SaveVM creates a new VM instance row
func (r *resourceRepo) SaveVM(ctx context.Context, vm *models.VMInstance) error {
	return r.db.WithContext(ctx).Create(vm).Error
}

// UpdateVM persists changes to a VM instance
func (r *resourceRepo) UpdateVM(ctx context.Context, vm *models.VMInstance) error {
	return r.db.WithContext(ctx).Save(vm).Error
}

// FindVMByUUID gets a VM instance by its external id
func (r *resourceRepo) FindVMByUUID(ctx context.Context, uuid string) (*models.VMInstance, error) {
	var vm models.VMInstance
	if err := r.first(ctx, &vm, uuid); err != nil {
		return nil, err
	}
	return &vm, nil
}

// ListVMs returns one page of a department's VM instances
func (r *resourceRepo) ListVMs(ctx context.Context, departmentID uint, paging PagingAndSorting) (*Page[*models.VMInstance], error) {
	query := r.db.WithContext(ctx).Model(&models.VMInstance{})
	if departmentID > 0 {
		query = query.Where("department_id = ?", departmentID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var vms []*models.VMInstance
	err := query.
		Order("created_at DESC").
		Limit(paging.Limit()).
		Offset(paging.Offset()).
		Find(&vms).Error
	if err != nil {
		return nil, err
	}
	return &Page[*models.VMInstance]{Items: vms, TotalCount: total}, nil
}

// SaveVolume creates a new volume row
func (r *resourceRepo) SaveVolume(ctx context.Context, volume *models.Volume) error {
	return r.db.WithContext(ctx).Create(volume).Error
}

// UpdateVolume persists changes to a volume
func (r *resourceRepo) UpdateVolume(ctx context.Context, volume *models.Volume) error {
	return r.db.WithContext(ctx).Save(volume).Error
}

// FindVolumeByUUID gets a volume by its external id
func (r *resourceRepo) FindVolumeByUUID(ctx context.Context, uuid string) (*models.Volume, error) {
	var volume models.Volume
	if err := r.first(ctx, &volume, uuid); err != nil {
		return nil, err
	}
	return &volume, nil
}

// ListVolumes returns one page of a department's volumes
func (r *resourceRepo) ListVolumes(ctx context.Context, departmentID uint, paging PagingAndSorting) (*Page[*models.Volume], error) {
	query := r.db.WithContext(ctx).Model(&models.Volume{})
	if departmentID > 0 {
		query = query.Where("department_id = ?", departmentID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var volumes []*models.Volume
	err := query.
		Order("created_at DESC").
		Limit(paging.Limit()).
		Offset(paging.Offset()).
		Find(&volumes).Error
	if err != nil {
		return nil, err
	}
	return &Page[*models.Volume]{Items: volumes, TotalCount: total}, nil
}

// SaveNetwork creates a new network row
func (r *resourceRepo) SaveNetwork(ctx context.Context, network *models.Network) error {
	return r.db.WithContext(ctx).Create(network).Error
}

// UpdateNetwork persists changes to a network
func (r *resourceRepo) UpdateNetwork(ctx context.Context, network *models.Network) error {
	return r.db.WithContext(ctx).Save(network).Error
}

// FindNetworkByUUID gets a network by its external id
func (r *resourceRepo) FindNetworkByUUID(ctx context.Context, uuid string) (*models.Network, error) {
	var network models.Network
	if err := r.first(ctx, &network, uuid); err != nil {
		return nil, err
	}
	return &network, nil
}

// SaveNetworkOffering creates a new network offering row
func (r *resourceRepo) SaveNetworkOffering(ctx context.Context, offering *models.NetworkOffering) error {
	return r.db.WithContext(ctx).Create(offering).Error
}

// UpdateNetworkOffering persists changes to a network offering
func (r *resourceRepo) UpdateNetworkOffering(ctx context.Context, offering *models.NetworkOffering) error {
	return r.db.WithContext(ctx).Save(offering).Error
}

// FindNetworkOfferingByUUID gets a network offering by its external id
func (r *resourceRepo) FindNetworkOfferingByUUID(ctx context.Context, uuid string) (*models.NetworkOffering, error) {
	var offering models.NetworkOffering
	if err := r.first(ctx, &offering, uuid); err != nil {
		return nil, err
	}
	return &offering, nil
}

// FindIPAddressByUUID gets a public IP by its external id
func (r *resourceRepo) FindIPAddressByUUID(ctx context.Context, uuid string) (*models.IPAddress, error) {
	var ip models.IPAddress
	if err := r.first(ctx, &ip, uuid); err != nil {
		return nil, err
	}
	return &ip, nil
}

// UpdateIPAddress persists changes to a public IP
func (r *resourceRepo) UpdateIPAddress(ctx context.Context, ip *models.IPAddress) error {
	return r.db.WithContext(ctx).Save(ip).Error
}

// FindSnapshotByUUID gets a snapshot by its external id
func (r *resourceRepo) FindSnapshotByUUID(ctx context.Context, uuid string) (*models.Snapshot, error) {
	var snapshot models.Snapshot
	if err := r.first(ctx, &snapshot, uuid); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// UpdateSnapshot persists changes to a snapshot
func (r *resourceRepo) UpdateSnapshot(ctx context.Context, snapshot *models.Snapshot) error {
	return r.db.WithContext(ctx).Save(snapshot).Error
}

// UpdateStateByTypeAndUUID moves the state column of the resource named by
// the platform type tag and external id
func (r *resourceRepo) UpdateStateByTypeAndUUID(ctx context.Context, resourceType, uuid string, state models.ResourceState) error {
	var result *gorm.DB
	switch resourceType {
	case "VM", "VirtualMachine":
		result = r.updateState(ctx, &models.VMInstance{}, uuid, state)
	case "Volume":
		result = r.updateState(ctx, &models.Volume{}, uuid, state)
	case "Network":
		result = r.updateState(ctx, &models.Network{}, uuid, state)
	case "NetworkOffering":
		result = r.updateState(ctx, &models.NetworkOffering{}, uuid, state)
	case "IpAddress", "PublicIpAddress":
		result = r.updateState(ctx, &models.IPAddress{}, uuid, state)
	case "Snapshot":
		result = r.updateState(ctx, &models.Snapshot{}, uuid, state)
	default:
		return fmt.Errorf("unknown resource type %q: %w", resourceType, ErrNotFound)
	}

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// first loads a row by uuid, mapping gorm's missing-row error to ErrNotFound
func (r *resourceRepo) first(ctx context.Context, dest interface{}, uuid string) error {
	err := r.db.WithContext(ctx).Where("uuid = ?", uuid).First(dest).Error
	if err != nil {
		if isRecordNotFoundError(err) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// updateState issues the state column update for one entity table
func (r *resourceRepo) updateState(ctx context.Context, model interface{}, uuid string, state models.ResourceState) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(model).
		Where("uuid = ?", uuid).
		Update("state", state)
}
