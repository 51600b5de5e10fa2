package ble

import (
	"sort"
	"strings"

	"github.com/godbus/dbus/v5"
)

// BlueZ D-Bus names.
const (
	bluezBus            = "org.bluez"
	bluezAdapterIface   = "org.bluez.Adapter1"
	bluezServiceIface   = "org.bluez.GattService1"
	bluezCharIface      = "org.bluez.GattCharacteristic1"
	bluezRootPath       = "/org/bluez"
	objectManagerMethod = "org.freedesktop.DBus.ObjectManager.GetManagedObjects"
	writeValueMethod    = bluezCharIface + ".WriteValue"
)

// managedObjects is the reply shape of ObjectManager.GetManagedObjects.
type managedObjects map[dbus.ObjectPath]map[string]map[string]dbus.Variant

// charKey identifies a characteristic within a connected peer.
type charKey struct {
	service string
	char    string
}

func newCharKey(serviceUUID, charUUID string) charKey {
	return charKey{service: strings.ToLower(serviceUUID), char: strings.ToLower(charUUID)}
}

// parseAdapters extracts Adapter1 objects, sorted by controller id so that
// hci0 comes first.
func parseAdapters(objs managedObjects) []AdapterInfo {
	var adapters []AdapterInfo
	for path, ifaces := range objs {
		props, ok := ifaces[bluezAdapterIface]
		if !ok {
			continue
		}
		id := string(path)
		info := AdapterInfo{ID: id[strings.LastIndex(id, "/")+1:]}
		if v, ok := props["Address"].Value().(string); ok {
			info.Address = NormalizeAddress(v)
		}
		if v, ok := props["Powered"].Value().(bool); ok {
			info.Powered = v
		}
		adapters = append(adapters, info)
	}
	sort.Slice(adapters, func(i, j int) bool { return adapters[i].ID < adapters[j].ID })
	return adapters
}

// devicePath returns the BlueZ object path of a peer on an adapter.
func devicePath(adapterID, addr string) dbus.ObjectPath {
	return dbus.ObjectPath(bluezRootPath + "/" + adapterID + "/dev_" +
		strings.ReplaceAll(NormalizeAddress(addr), ":", "_"))
}

// charObject is what BlueZ reports about one characteristic.
type charObject struct {
	path dbus.ObjectPath
	caps Capability
}

// parseCharacteristics maps each characteristic below dev to its object
// path and the capabilities BlueZ reports for it.
func parseCharacteristics(objs managedObjects, dev dbus.ObjectPath) map[charKey]charObject {
	prefix := string(dev) + "/"
	chars := make(map[charKey]charObject)
	for path, ifaces := range objs {
		if !strings.HasPrefix(string(path), prefix) {
			continue
		}
		props, ok := ifaces[bluezCharIface]
		if !ok {
			continue
		}
		charUUID, _ := props["UUID"].Value().(string)
		svcPath, _ := props["Service"].Value().(dbus.ObjectPath)
		flags, _ := props["Flags"].Value().([]string)
		svcUUID, _ := objs[svcPath][bluezServiceIface]["UUID"].Value().(string)
		if charUUID == "" || svcUUID == "" {
			continue
		}
		chars[newCharKey(svcUUID, charUUID)] = charObject{path: path, caps: CapabilityFromFlags(flags)}
	}
	return chars
}
