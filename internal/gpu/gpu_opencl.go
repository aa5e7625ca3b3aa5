//go:build opencl && cgo

package gpu

/*
#cgo linux LDFLAGS: -lOpenCL
#cgo windows LDFLAGS: -lOpenCL
#cgo darwin LDFLAGS: -framework OpenCL

#define CL_TARGET_OPENCL_VERSION 120
#define CL_USE_DEPRECATED_OPENCL_1_2_APIS

#ifdef __APPLE__
#include <OpenCL/cl.h>
#else
#include <CL/cl.h>
#endif

#include <stdlib.h>
#include <string.h>
#include <stdio.h>

typedef struct {
    cl_context context;
    cl_command_queue queue;
    cl_kernel kernel;
    cl_program program;
    cl_mem inputBuf;
    cl_mem outputBuf;
    cl_uint capacity;
    cl_uint lanes;
} OpenCLWorker;

static cl_device_id* g_devices = NULL;
static int g_deviceCount = 0;
static int g_initialized = 0;

static void ensureInit(void) {
    if (g_initialized) return;
    g_initialized = 1;

    cl_uint numPlatforms = 0;
    clGetPlatformIDs(0, NULL, &numPlatforms);
    if (numPlatforms == 0) return;

    cl_platform_id* platforms = (cl_platform_id*)malloc(sizeof(cl_platform_id) * numPlatforms);
    clGetPlatformIDs(numPlatforms, platforms, NULL);

    // Count all GPU devices across platforms
    int total = 0;
    for (cl_uint p = 0; p < numPlatforms; p++) {
        cl_uint nd = 0;
        clGetDeviceIDs(platforms[p], CL_DEVICE_TYPE_GPU, 0, NULL, &nd);
        total += nd;
    }
    if (total == 0) { free(platforms); return; }

    g_devices = (cl_device_id*)malloc(sizeof(cl_device_id) * total);
    int idx = 0;
    for (cl_uint p = 0; p < numPlatforms; p++) {
        cl_uint nd = 0;
        clGetDeviceIDs(platforms[p], CL_DEVICE_TYPE_GPU, 0, NULL, &nd);
        if (nd > 0) {
            clGetDeviceIDs(platforms[p], CL_DEVICE_TYPE_GPU, nd, g_devices + idx, NULL);
            idx += nd;
        }
    }
    g_deviceCount = idx;
    free(platforms);
}

int oclDeviceCount(void) {
    ensureInit();
    return g_deviceCount;
}

char* oclDeviceName(int index) {
    ensureInit();
    if (index < 0 || index >= g_deviceCount) return strdup("Unknown");
    char name[256];
    clGetDeviceInfo(g_devices[index], CL_DEVICE_NAME, sizeof(name), name, NULL);
    return strdup(name);
}

char* oclDeviceVendor(int index) {
    ensureInit();
    if (index < 0 || index >= g_deviceCount) return strdup("Unknown");
    char vendor[256];
    clGetDeviceInfo(g_devices[index], CL_DEVICE_VENDOR, sizeof(vendor), vendor, NULL);
    return strdup(vendor);
}

size_t oclDeviceMaxWorkGroupSize(int index) {
    ensureInit();
    if (index < 0 || index >= g_deviceCount) return 0;
    size_t size = 0;
    clGetDeviceInfo(g_devices[index], CL_DEVICE_MAX_WORK_GROUP_SIZE, sizeof(size), &size, NULL);
    return size;
}

void* oclNewWorker(int deviceIndex, const char* source, const char* kernelName,
                   const cl_uint* input, int inputLen, cl_uint constraintCount,
                   cl_uint capacity, cl_uint lanes) {
    ensureInit();
    if (deviceIndex < 0 || deviceIndex >= g_deviceCount) return NULL;

    cl_device_id dev = g_devices[deviceIndex];
    cl_int err;

    cl_context ctx = clCreateContext(NULL, 1, &dev, NULL, NULL, &err);
    if (err != CL_SUCCESS) return NULL;

    cl_command_queue queue = clCreateCommandQueue(ctx, dev, 0, &err);
    if (err != CL_SUCCESS) { clReleaseContext(ctx); return NULL; }

    size_t srcLen = strlen(source);
    cl_program prog = clCreateProgramWithSource(ctx, 1, &source, &srcLen, &err);
    if (err != CL_SUCCESS) { clReleaseCommandQueue(queue); clReleaseContext(ctx); return NULL; }

    err = clBuildProgram(prog, 1, &dev, NULL, NULL, NULL);
    if (err != CL_SUCCESS) {
        char log[4096];
        clGetProgramBuildInfo(prog, dev, CL_PROGRAM_BUILD_LOG, sizeof(log), log, NULL);
        fprintf(stderr, "OpenCL build error: %s\n", log);
        clReleaseProgram(prog);
        clReleaseCommandQueue(queue);
        clReleaseContext(ctx);
        return NULL;
    }

    cl_kernel kern = clCreateKernel(prog, kernelName, &err);
    if (err != CL_SUCCESS) {
        clReleaseProgram(prog);
        clReleaseCommandQueue(queue);
        clReleaseContext(ctx);
        return NULL;
    }

    // The constraint table is uploaded once; only word 0 (the shard) changes.
    cl_mem inputBuf = clCreateBuffer(ctx, CL_MEM_READ_ONLY | CL_MEM_COPY_HOST_PTR,
                                     sizeof(cl_uint) * inputLen, (void*)input, &err);
    if (err != CL_SUCCESS) {
        clReleaseKernel(kern);
        clReleaseProgram(prog);
        clReleaseCommandQueue(queue);
        clReleaseContext(ctx);
        return NULL;
    }
    cl_mem outputBuf = clCreateBuffer(ctx, CL_MEM_READ_WRITE,
                                      sizeof(cl_uint) * (capacity + 1), NULL, &err);
    if (err != CL_SUCCESS) {
        clReleaseMemObject(inputBuf);
        clReleaseKernel(kern);
        clReleaseProgram(prog);
        clReleaseCommandQueue(queue);
        clReleaseContext(ctx);
        return NULL;
    }

    clSetKernelArg(kern, 0, sizeof(cl_mem), &inputBuf);
    clSetKernelArg(kern, 1, sizeof(cl_uint), &constraintCount);
    clSetKernelArg(kern, 2, sizeof(cl_uint), &lanes);
    clSetKernelArg(kern, 3, sizeof(cl_uint), &capacity);
    clSetKernelArg(kern, 4, sizeof(cl_mem), &outputBuf);

    OpenCLWorker* w = (OpenCLWorker*)calloc(1, sizeof(OpenCLWorker));
    w->context = ctx;
    w->queue = queue;
    w->kernel = kern;
    w->program = prog;
    w->inputBuf = inputBuf;
    w->outputBuf = outputBuf;
    w->capacity = capacity;
    w->lanes = lanes;
    return w;
}

// oclRunShard fills out with capacity+1 words: the match counter followed
// by the captured seeds. Returns an OpenCL status code.
cl_int oclRunShard(void* handle, cl_uint shard, cl_uint* out) {
    OpenCLWorker* w = (OpenCLWorker*)handle;
    if (!w) return CL_INVALID_VALUE;

    cl_int err = clEnqueueWriteBuffer(w->queue, w->inputBuf, CL_TRUE, 0, sizeof(cl_uint), &shard, 0, NULL, NULL);
    if (err != CL_SUCCESS) return err;

    // Reset the match counter
    cl_uint zero = 0;
    err = clEnqueueWriteBuffer(w->queue, w->outputBuf, CL_TRUE, 0, sizeof(cl_uint), &zero, 0, NULL, NULL);
    if (err != CL_SUCCESS) return err;

    size_t localSize = 256;
    size_t globalSize = ((size_t)w->lanes + localSize - 1) / localSize * localSize;
    err = clEnqueueNDRangeKernel(w->queue, w->kernel, 1, NULL, &globalSize, &localSize, 0, NULL, NULL);
    if (err != CL_SUCCESS) return err;

    err = clFinish(w->queue);
    if (err != CL_SUCCESS) return err;

    return clEnqueueReadBuffer(w->queue, w->outputBuf, CL_TRUE, 0,
                               sizeof(cl_uint) * (w->capacity + 1), out, 0, NULL, NULL);
}

void oclFreeWorker(void* handle) {
    OpenCLWorker* w = (OpenCLWorker*)handle;
    if (!w) return;
    clReleaseMemObject(w->outputBuf);
    clReleaseMemObject(w->inputBuf);
    clReleaseKernel(w->kernel);
    clReleaseProgram(w->program);
    clReleaseCommandQueue(w->queue);
    clReleaseContext(w->context);
    free(w);
}
*/
import "C"
import (
	"fmt"
	"unsafe"

	"github.com/phpmtseed/phpmtseed/internal/shard"
)

// Available returns true if at least one OpenCL GPU device is detected.
func Available() bool {
	return C.oclDeviceCount() > 0
}

// ListDevices enumerates OpenCL GPU devices.
func ListDevices() ([]Device, error) {
	count := int(C.oclDeviceCount())
	if count == 0 {
		return nil, nil
	}

	devices := make([]Device, count)
	for i := 0; i < count; i++ {
		devices[i] = deviceInfo(i)
	}
	return devices, nil
}

func deviceInfo(i int) Device {
	cName := C.oclDeviceName(C.int(i))
	cVendor := C.oclDeviceVendor(C.int(i))
	defer C.free(unsafe.Pointer(cName))
	defer C.free(unsafe.Pointer(cVendor))
	return Device{
		Name:             C.GoString(cName),
		Vendor:           C.GoString(cVendor),
		MaxWorkGroupSize: int(C.oclDeviceMaxWorkGroupSize(C.int(i))),
		Backend:          "OpenCL",
	}
}

// NewWorker builds the search kernel on the selected device and uploads the
// constraint table.
func NewWorker(cfg WorkerConfig) (*Worker, error) {
	if !Available() {
		return nil, fmt.Errorf("%w: no OpenCL GPU available", ErrUnavailable)
	}
	if cfg.DeviceIndex < 0 || cfg.DeviceIndex >= int(C.oclDeviceCount()) {
		return nil, fmt.Errorf("%w: OpenCL device %d does not exist", ErrUnavailable, cfg.DeviceIndex)
	}
	if err := cfg.Constraints.Validate(); err != nil {
		return nil, err
	}
	if err := (shard.Plan{Lanes: cfg.Lanes}).Validate(); err != nil {
		return nil, err
	}
	if cfg.Capacity <= 0 {
		return nil, fmt.Errorf("result capacity must be positive, got %d", cfg.Capacity)
	}

	dev := deviceInfo(cfg.DeviceIndex)
	if dev.MaxWorkGroupSize < shard.WorkgroupSize {
		return nil, fmt.Errorf("%w: %s supports work groups of %d, need %d",
			ErrUnavailable, dev.Name, dev.MaxWorkGroupSize, shard.WorkgroupSize)
	}

	cSource := C.CString(kernelSource)
	defer C.free(unsafe.Pointer(cSource))
	cName := C.CString(kernelName)
	defer C.free(unsafe.Pointer(cName))

	input := cfg.Constraints.Words(0)
	handle := C.oclNewWorker(
		C.int(cfg.DeviceIndex),
		cSource,
		cName,
		(*C.cl_uint)(unsafe.Pointer(&input[0])),
		C.int(len(input)),
		C.cl_uint(len(cfg.Constraints)),
		C.cl_uint(cfg.Capacity),
		C.cl_uint(cfg.Lanes),
	)
	if handle == nil {
		return nil, fmt.Errorf("failed to create OpenCL compute pipeline")
	}

	return &Worker{
		impl:   &openclWorker{handle: handle, capacity: cfg.Capacity},
		device: dev,
	}, nil
}

type openclWorker struct {
	handle   unsafe.Pointer
	capacity int
}

func (w *openclWorker) runShard(s uint32) ([]uint32, error) {
	words := make([]uint32, w.capacity+1)
	status := C.oclRunShard(w.handle, C.cl_uint(s), (*C.cl_uint)(unsafe.Pointer(&words[0])))
	if status != C.CL_SUCCESS {
		return nil, fmt.Errorf("OpenCL dispatch of shard %d failed: status %d", s, int(status))
	}
	return words, nil
}

func (w *openclWorker) close() {
	if w.handle != nil {
		C.oclFreeWorker(w.handle)
		w.handle = nil
	}
}
